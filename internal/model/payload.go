package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadKind enumerates the payload shapes syndicate recognizes.
type PayloadKind int

const (
	PayloadUnknown PayloadKind = iota
	PayloadNote
	PayloadComment
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadNote:
		return "note"
	case PayloadComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Payload is the parsed form of a response's JSON body.
type Payload struct {
	Kind       PayloadKind
	ObjectType string
	ID         string
}

// ParsePayload decodes raw and tags it with one of the known kinds.
// Empty input yields PayloadUnknown.
func ParsePayload(raw string) (Payload, error) {
	if strings.TrimSpace(raw) == "" {
		return Payload{Kind: PayloadUnknown}, nil
	}

	var obj struct {
		ObjectType string `json:"objectType"`
		ID         string `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return Payload{}, fmt.Errorf("parse payload: %w", err)
	}

	p := Payload{ObjectType: obj.ObjectType, ID: obj.ID}
	switch obj.ObjectType {
	case "note":
		p.Kind = PayloadNote
	case "comment":
		p.Kind = PayloadComment
	default:
		p.Kind = PayloadUnknown
	}
	return p, nil
}

// ResponseType returns the classification stored on a Response.
// Every kind, notes included, is a comment on the original post.
func (p Payload) ResponseType() ResponseType {
	return ResponseTypeComment
}
