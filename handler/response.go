package handler

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/plasmx/referral-ledger/logger"
	"github.com/plasmx/referral-ledger/service"
)

// looseString accepts either a JSON string or a bare JSON number and keeps the
// literal text, so amount validation happens in the service with a typed error.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(b)
	return nil
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(400, gin.H{"success": false, "error": msg})
}

// respondError writes the client-safe view of err; internal causes only go to the log.
func respondError(c *gin.Context, err error) {
	e := service.AsError(err)
	status := e.Kind.HTTPStatus()
	if status >= 500 {
		logger.Error("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}

	body := gin.H{"success": false, "error": e.Message, "code": e.Kind}
	if e.Kind == service.KindInsufficientBalance {
		body["payable"] = e.Payable
		body["requested"] = e.Requested
	}
	c.JSON(status, body)
}
