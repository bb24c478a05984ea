package backend

import (
	"encoding/json"

	"github.com/receiptwise/receiptwise/internal/apperr"
)

// errorBody matches the shapes the backend's REST, auth and storage layers
// use for failure responses.
type errorBody struct {
	Code             string `json:"code"`
	ErrorCode        string `json:"error_code"`
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Err              string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func decodeError(status int, data []byte) error {
	be := &apperr.BackendError{Status: status, Message: string(data)}

	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil {
		switch {
		case body.Message != "":
			be.Message = body.Message
		case body.Msg != "":
			be.Message = body.Msg
		case body.ErrorDescription != "":
			be.Message = body.ErrorDescription
		case body.Err != "":
			be.Message = body.Err
		}

		if body.Code != "" {
			be.Code = body.Code
		} else if body.ErrorCode != "" {
			be.Code = body.ErrorCode
		}
	}

	return be
}
