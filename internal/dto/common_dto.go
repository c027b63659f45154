package dto

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func rawJSON(data datatypes.JSON) json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	return json.RawMessage(data)
}
