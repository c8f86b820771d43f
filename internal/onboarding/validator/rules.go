package validator

import (
	"reflect"
	"strings"
	"time"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
)

const paymentPrefix = "payment"

var validate = newValidate()

// structPaths maps json field paths to the Go field paths StructPartial expects.
var structPaths = buildStructPaths()

func newValidate() *govalidator.Validate {
	v := govalidator.New()
	v.RegisterTagNameFunc(jsonName)
	if err := v.RegisterValidation("filled", filled); err != nil {
		panic(err)
	}
	return v
}

// filled requires a non-blank string or a true boolean.
func filled(fl govalidator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Bool:
		return field.Bool()
	default:
		return !field.IsZero()
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func buildStructPaths() map[domain.FieldPath]string {
	out := make(map[domain.FieldPath]string)
	walkPaths(out, reflect.TypeOf(domain.FormDraft{}), "", "")
	walkPaths(out, reflect.TypeOf(domain.PaymentDetails{}), paymentPrefix+".", "")
	return out
}

var timeType = reflect.TypeOf(time.Time{})

func walkPaths(out map[domain.FieldPath]string, typ reflect.Type, jsonPrefix, goPrefix string) {
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		name := jsonName(f)
		if name == "" {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != timeType {
			walkPaths(out, ft, jsonPrefix+name+".", goPrefix+f.Name+".")
			continue
		}
		out[domain.FieldPath(jsonPrefix+name)] = goPrefix + f.Name
	}
}

func goPaths(paths []domain.FieldPath) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if goPath, ok := structPaths[path]; ok {
			out = append(out, goPath)
		}
	}
	return out
}
