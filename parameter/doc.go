// Package parameter declares data access parameters and resolves caller
// supplied overrides against them.
//
// A Set is declared once per data access definition. Every request calls
// Resolve, which produces a fresh, name sorted Resolved value:
//
//	declared := parameter.MustSet(
//		parameter.Parameter{Name: "region", Type: parameter.TypeString, Default: "EU"},
//		parameter.Parameter{Name: "tenant", Access: parameter.AccessRestricted, Default: "acme"},
//	)
//	resolved, err := parameter.Resolve(declared, map[string]any{"region": "US", "tenant": "evil"})
//	// region=US, tenant=acme
//
// Override values may be strings, which are parsed according to the declared
// type, or Go values of a compatible kind. Rules built with ozzo-validation
// run after coercion.
package parameter
