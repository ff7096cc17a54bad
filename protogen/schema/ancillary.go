package schema

import (
	"github.com/broady/restproto/protogen/classify"
	"github.com/broady/restproto/protogen/idl"
)

// Names of the fixed messages.
const (
	HeaderMessage      = "gHeader"
	CookieMessage      = "gCookie"
	NewCookieMessage   = "gNewCookie"
	ServletInfoMessage = "ServletInfo"
	FormValuesMessage  = "FormValues"
	FormMapMessage     = "FormMap"
	SameSiteEnum       = "SameSite"
)

// FormField is the request envelope variant that carries form data.
const FormField = "form_field"

// ancillaryMessages returns the request metadata messages in emission order.
func ancillaryMessages() []*idl.Message {
	header := idl.NewMessage(HeaderMessage)
	header.AddRepeated("string", "values")

	cookie := idl.NewMessage(CookieMessage)
	cookie.AddField("string", "name")
	cookie.AddField("string", "value")
	cookie.AddField("int32", "version")
	cookie.AddField("string", "path")
	cookie.AddField("string", "domain")

	newCookie := idl.NewMessage(NewCookieMessage)
	newCookie.AddEnum(SameSiteEnum, "NONE", "LAX", "STRICT")
	newCookie.AddField("string", "name")
	newCookie.AddField("string", "value")
	newCookie.AddField("int32", "version")
	newCookie.AddField("string", "path")
	newCookie.AddField("string", "domain")
	newCookie.AddField("string", "comment")
	newCookie.AddField("int32", "maxAge")
	newCookie.AddField(idl.TimestampType, "expiry")
	newCookie.AddField("bool", "secure")
	newCookie.AddField("bool", "httpOnly")
	newCookie.AddField(SameSiteEnum, "sameSiteMode")

	servlet := idl.NewMessage(ServletInfoMessage)
	servlet.AddField("string", "remoteAddr")
	servlet.AddField("string", "remoteHost")
	servlet.AddField("int32", "remotePort")
	servlet.AddField("string", "localAddr")
	servlet.AddField("int32", "localPort")
	servlet.AddField("string", "scheme")
	servlet.AddField("string", "serverName")
	servlet.AddField("int32", "serverPort")
	servlet.AddField("string", "contextPath")
	servlet.AddField("string", "queryString")

	formValues := idl.NewMessage(FormValuesMessage)
	formValues.AddRepeated("string", "values")

	formMap := idl.NewMessage(FormMapMessage)
	formMap.AddMap("string", FormValuesMessage, "fields")

	return []*idl.Message{header, cookie, newCookie, servlet, formValues, formMap}
}

func emptyMessage(name string) *idl.Message {
	return idl.NewMessage(name)
}

func eventMessage(name string) *idl.Message {
	m := idl.NewMessage(name)
	m.AddField("string", "id")
	m.AddField("string", "name")
	m.AddField("string", "comment")
	m.AddField("string", "mediaType")
	m.AddField(idl.AnyType, "data")
	m.AddField("int64", "reconnectDelay")
	return m
}

// boxMessages returns one single-field message per used box kind, in the
// fixed kind order.
func boxMessages(used map[string]bool) []*idl.Message {
	var msgs []*idl.Message
	for _, b := range classify.Boxes() {
		if !used[b.Message] {
			continue
		}
		m := idl.NewMessage(b.Message)
		m.AddField(b.Scalar, "value")
		msgs = append(msgs, m)
	}
	return msgs
}
