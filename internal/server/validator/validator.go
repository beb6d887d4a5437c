package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

var trans ut.Translator

// InitValidator wires the gin binding validator to report json field
// names and to translate messages into English.
func InitValidator() {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	engine.RegisterTagNameFunc(jsonFieldName)

	locale := en.New()
	trans, _ = ut.New(locale, locale).GetTranslator("en")
	_ = entrans.RegisterDefaultTranslations(engine, trans)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// ParseValidationError flattens binding errors into a field-to-message
// map suitable for a problem response.
func ParseValidationError(err error) map[string]string {
	fields, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": "Invalid request body format."}
	}

	out := make(map[string]string, len(fields))
	for _, fe := range fields {
		name := fe.Namespace()
		if i := strings.Index(name, "."); i != -1 {
			name = name[i+1:]
		}
		switch fe.Tag() {
		case "oneof":
			out[name] = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(fe.Param(), " ", ", "))
		default:
			out[name] = fe.Translate(trans)
		}
	}
	return out
}
