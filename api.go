// Package quarry maps typed records to generic documents and store rows.
//
// A record type is an exported struct. Each exported field becomes a
// field of the record's Descriptor with a resolved type Shape (scalar,
// optional, sequence or nested record), an external document name and a
// store column. Encode and Decode convert records to and from documents
// (map[string]any trees); CopyFields moves named values between any two
// Accessors and underpins the row mapping in the store package.
//
// # Tag Syntax
//
//	type Invoice struct {
//	    ID      *int64          `doc:"id" db:"id,pk"`
//	    Number  string          `doc:"number"`
//	    Total   decimal.Decimal `doc:"total"`
//	    Issued  quarry.Date     `doc:"issued"`
//	    Lines   []Line          `doc:"lines" db:"-"`
//	    Secret  string          `doc:"secret,skip" store.encrypt:"aes" load.decrypt:"aes"`
//	    Email   string          `doc:"email" send.mask:"email"`
//	}
//
//	doc:"name[,skip]"   external name; skip omits the field from output; "-" excludes it
//	db:"column[,pk]"    store column; pk marks the primary key; "-" keeps it out of rows
//
// Boundary transforms use the compound syntax {context}.{action}:"{capability}":
//
//	receive.hash:"argon2"    hash inbound values (Processor.Receive)
//	send.mask:"email"        mask outbound values (Processor.Send)
//	send.redact:"***"        replace outbound values (Processor.Send)
//	store.encrypt:"aes"      encrypt row columns (store.Binding.ToRow)
//	load.decrypt:"aes"       decrypt row columns (store.Binding.FromRow)
//
// # Documents
//
//	doc, _ := quarry.Encode(invoice)
//	back, _ := quarry.Decode[Invoice](doc)
//
// Timestamps encode as UTC "YYYY-MM-DDTHH:MM:SS[.fraction]", dates as
// "YYYY-MM-DD", decimals and other text types through MarshalText and byte
// strings as base64.
//
// # Processors
//
//	proc, _ := quarry.Use[User](json.New())
//	user, _ := proc.Receive(ctx, body)  // hashes password
//	out, _ := proc.Send(ctx, user)      // masks email, redacts password
package quarry

import (
	"bytes"

	"github.com/goccy/go-json"
)

// ToJSON encodes record as a JSON document.
func ToJSON(record any) ([]byte, error) {
	doc, err := Encode(record)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, newCodecError(ErrMarshal, "application/json", err)
	}
	return data, nil
}

// FromJSON decodes a JSON document into a T. Numbers are read exactly, so
// large integers and decimals survive the trip.
func FromJSON[T any](data []byte) (*T, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, newCodecError(ErrUnmarshal, "application/json", err)
	}
	return Decode[T](doc)
}
