// Package field classifies Go types into the semantic column types used for
// bound parameters and value conversion.
//
//	field.TypeFor(reflect.TypeFor[string]())         // field.TypeString
//	field.TypeFor(reflect.TypeFor[sql.NullInt64]())  // field.TypeInt64
//	field.TypeFor(reflect.TypeFor[*time.Time]())     // field.TypeTime
//	field.TypeFor(reflect.TypeFor[field.Date]())     // field.TypeDate
//	field.TypeFor(reflect.TypeFor[uuid.UUID]())      // field.TypeUUID
//	field.TypeFor(reflect.TypeFor[apd.Decimal]())    // field.TypeDecimal
//
// Date is a calendar date without a time of day, stored at midnight UTC.
package field
