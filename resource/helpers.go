package resource

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/underlx/servicealerts/reconcile"
	"github.com/underlx/servicealerts/transaction"
	"github.com/underlx/servicealerts/types"
	"github.com/underlx/servicealerts/utils"
	"github.com/yarf-framework/yarf"
	msgpack "gopkg.in/vmihailenco/msgpack.v2"
)

type resource struct {
	yarf.Resource
	engine   *reconcile.Engine
	log      *log.Logger
	adminKey string
}

func (r *resource) DecodeRequest(c *yarf.Context, v interface{}) error {
	contentType := c.Request.Header.Get("Content-Type")
	var err error
	switch {
	case strings.Contains(contentType, "msgpack"):
		err = msgpack.NewDecoder(c.Request.Body).Decode(v)
	default:
		err = json.NewDecoder(c.Request.Body).Decode(v)
	}

	if err != nil {
		return &yarf.CustomError{
			HTTPCode:  http.StatusBadRequest,
			ErrorMsg:  "Failed to decode request",
			ErrorBody: err.Error(),
		}
	}
	return nil
}

// authenticate checks the admin key passed as a bearer token
func (r *resource) authenticate(c *yarf.Context) error {
	given := strings.TrimPrefix(c.Request.Header.Get("Authorization"), "Bearer ")
	if r.adminKey == "" || subtle.ConstantTimeCompare([]byte(given), []byte(r.adminKey)) != 1 {
		return &yarf.CustomError{
			HTTPCode:  http.StatusUnauthorized,
			ErrorMsg:  "Unauthorized",
			ErrorBody: "Unauthorized",
		}
	}
	return nil
}

func (r *resource) logAction(c *yarf.Context, v ...interface{}) {
	if r.log == nil {
		return
	}
	r.log.Println(append([]interface{}{utils.GetClientIP(c.Request)}, v...)...)
}

// tokenParam decodes the notice ID token in the "token" route parameter
func tokenParam(c *yarf.Context) (types.ExternalDisruptionID, error) {
	id, err := types.ParseExternalDisruptionIDToken(c.Param("token"))
	if err != nil {
		return id, &yarf.CustomError{
			HTTPCode:  http.StatusBadRequest,
			ErrorMsg:  "Invalid notice token",
			ErrorBody: err.Error(),
		}
	}
	return id, nil
}

// translateError maps engine errors to HTTP errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reconcile.ErrNotInInbox), errors.Is(err, transaction.ErrNotFound):
		return &yarf.CustomError{
			HTTPCode:  http.StatusNotFound,
			ErrorMsg:  "Not found",
			ErrorBody: err.Error(),
		}
	case errors.Is(err, reconcile.ErrNothingToAccept), errors.Is(err, transaction.ErrDuplicateID):
		return &yarf.CustomError{
			HTTPCode:  http.StatusConflict,
			ErrorMsg:  "Conflict",
			ErrorBody: err.Error(),
		}
	default:
		return err
	}
}

// RenderData takes a interface{} object and writes the encoded representation of it.
// Encoding used will be idented JSON, non-idented JSON or Msgpack
func RenderData(c *yarf.Context, data interface{}) {
	accept := c.Request.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "json"):
		c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.RenderJSON(data)
	case strings.Contains(accept, "msgpack"):
		RenderMsgpack(c, data)
	default:
		c.Response.Header().Set("Content-Type", "application/json; charset=utf-8")
		c.RenderJSONIndent(data)
	}
}

// RenderMsgpack takes a interface{} object and writes the Msgpack encoded string of it.
func RenderMsgpack(c *yarf.Context, data interface{}) {
	c.Response.Header().Set("Content-Type", "application/msgpack")
	// Set content
	encoded, err := msgpack.Marshal(data)
	if err != nil {
		log.Println(err)
		c.Response.Write([]byte(err.Error()))
	} else {
		c.Response.Write(encoded)
	}
}
