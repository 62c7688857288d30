package models

import (
	"encoding/json"
	"io"
	"log/slog"

	dErrors "dronewatch/pkg/domain-errors"
)

// Document is the decoded body of an identity lookup response. Fields
// absent from the response stay empty; they are optional by contract.
type Document struct {
	PilotID   string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Created   string
}

// ParseDocument decodes a lookup response body through an explicit,
// exhaustively-cased field mapping. Unknown fields are logged and
// dropped; fields of an unexpected type are treated the same way.
func ParseDocument(r io.Reader, logger *slog.Logger) (*Document, error) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeParse, "decoding pilot document")
	}

	doc := &Document{}
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			logger.Debug("non-string pilot field dropped", "field", key)
			continue
		}
		switch key {
		case "pilotId":
			doc.PilotID = s
		case "firstName":
			doc.FirstName = s
		case "lastName":
			doc.LastName = s
		case "email":
			doc.Email = s
		case "phoneNumber":
			doc.Phone = s
		case "createdDt":
			doc.Created = s
		default:
			logger.Debug("unknown pilot field dropped", "field", key)
		}
	}
	return doc, nil
}
