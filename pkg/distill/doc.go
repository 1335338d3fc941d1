// Package distill extracts structured field values from content entities and
// flattens them into an ordered key/value document suitable for serialization
// (search indices, JSON APIs, export formats).
//
// A Distiller is built per entity. At construction it records, for every field
// the entity declares, whether the Processor offers a handler scoped to that
// field name or to the field's type. Extraction then dispatches each field, or
// each value of a multi-value field, to the first strategy that applies:
//
//  1. a field-name handler (process<FieldName>Field)
//  2. a field-type handler (process<FieldType>Type)
//  3. the distill_process_<field_type> extension hook
//
// Results accumulate in an ordered Values map that callers read with Values.
//
// Handler Registration
//
// A Registry maps normalized handler identifiers to Handler functions. Handlers
// are registered explicitly, or discovered from the exported methods of a type
// with NewRegistryFromMethods:
//
//	type MyProcessor struct{}
//
//	func (MyProcessor) ProcessBodyField(ctx context.Context, v any, i int, s distill.Settings) (any, error) {
//		...
//	}
//
//	reg := distill.NewRegistryFromMethods(MyProcessor{})
//	d := distill.New(node, distill.WithProcessor(reg))
//	if err := d.ExtractAllFields(ctx); err != nil {
//		return err
//	}
//	out, _ := json.Marshal(d.Values())
package distill
