package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/kart-discounts/internal/domain/pricing"
)

// EncodeResult writes r as a JSON object. Money is encoded as strings with two
// decimal places. id is omitted when empty.
func EncodeResult(e *jx.Encoder, id string, r *pricing.Result) {
	e.ObjStart()
	if id != "" {
		e.FieldStart("id")
		e.Str(id)
	}
	e.FieldStart("original_price")
	e.Str(r.OriginalPrice.StringFixed(2))
	e.FieldStart("final_price")
	e.Str(r.FinalPrice.StringFixed(2))
	e.FieldStart("savings")
	e.Str(r.Savings().StringFixed(2))

	e.FieldStart("applied_discounts")
	e.ArrStart()
	for _, a := range r.Applied {
		e.ObjStart()
		e.FieldStart("rule")
		e.Str(a.Rule)
		e.FieldStart("amount")
		e.Str(a.Amount.StringFixed(2))
		if a.Description != "" {
			e.FieldStart("description")
			e.Str(a.Description)
		}
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("descriptions")
	e.ArrStart()
	for _, desc := range r.Descriptions {
		e.Str(desc)
	}
	e.ArrEnd()

	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range r.Lines {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(l.ProductID)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("original")
		e.Str(l.Original.StringFixed(2))
		e.FieldStart("final")
		e.Str(l.Final.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("message")
	e.Str(r.Message)
	e.ObjEnd()
}

// EncodeError writes the error body used by the HTTP API.
func EncodeError(e *jx.Encoder, code int, message string) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
}
