// Package processors provides the standard type handlers for the common
// platform field types.
//
// Handlers are methods on Standard named after the handler identifier they
// serve (ProcessIntegerType serves fields of type "integer") and are
// discovered by distill.NewRegistryFromMethods:
//
//	reg := processors.NewRegistry(processors.WithMaxDepth(1))
//	values, err := distill.Distill(ctx, entity, distill.WithProcessor(reg))
package processors
