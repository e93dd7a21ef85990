package dataaccess

// PropertyType is the value type of a configurable property.
type PropertyType string

const (
	PropertyString     PropertyType = "string"
	PropertyBoolean    PropertyType = "boolean"
	PropertyNumeric    PropertyType = "numeric"
	PropertyParameters PropertyType = "parameters"
)

// Placement says how a property is written in a definition document: as an
// attribute of the data access element or as a nested child element.
type Placement string

const (
	Attribute Placement = "attrib"
	Child     Placement = "child"
)

// PropertyDescriptor describes one configurable property of a data access
// for external tooling.
type PropertyDescriptor struct {
	Name      string
	Type      PropertyType
	Placement Placement
}

var baseProperties = []PropertyDescriptor{
	{Name: "id", Type: PropertyString, Placement: Attribute},
	{Name: "name", Type: PropertyString, Placement: Attribute},
	{Name: "parameters", Type: PropertyParameters, Placement: Child},
}

var simpleProperties = []PropertyDescriptor{
	{Name: "query", Type: PropertyString, Placement: Child},
	{Name: "connection", Type: PropertyString, Placement: Attribute},
	{Name: "cache", Type: PropertyBoolean, Placement: Attribute},
	{Name: "cacheDuration", Type: PropertyNumeric, Placement: Attribute},
}

// Interface lists the configurable properties of a SimpleDataAccess, base
// properties first. The slice is freshly allocated.
func (d *SimpleDataAccess) Interface() []PropertyDescriptor {
	return Properties()
}

// Properties is Interface without an instance.
func Properties() []PropertyDescriptor {
	out := make([]PropertyDescriptor, 0, len(baseProperties)+len(simpleProperties))
	out = append(out, baseProperties...)
	return append(out, simpleProperties...)
}
