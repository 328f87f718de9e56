package util

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/go-wordwrap"

	"gopkg.in/yaml.v3"
)

// DisableYAMLMarshalComments controls MarshalYAMLWithDescriptions
var DisableYAMLMarshalComments = false

// MarshalYAMLWithDescriptions marshals a struct, and adds the
// "description" tags of its fields as head comments.
//
// Make sure the value (pointer receiver is fine)
// you pass in doesn't implement YAML Marshaler,
// otherwise YAML will get into a Marshal() loop.
func MarshalYAMLWithDescriptions(val interface{}) (interface{}, error) {
	tp := reflect.TypeOf(val)
	v := reflect.ValueOf(val)
	if tp.Kind() == reflect.Ptr {
		tp = tp.Elem()
		v = v.Elem()
	}

	if tp.Kind() != reflect.Struct {
		return nil, fmt.Errorf("only structs are supported, got %v", tp.Kind())
	}

	// An alias type without methods, so that the MarshalYAML
	// method of val is not called again.
	plain := reflect.New(reflect.StructOf(structFields(tp))).Elem()
	for i := 0; i < tp.NumField(); i++ {
		if tp.Field(i).PkgPath != "" {
			continue
		}
		plain.FieldByName(tp.Field(i).Name).Set(v.Field(i))
	}

	var node yaml.Node
	if err := node.Encode(plain.Interface()); err != nil {
		return nil, err
	}

	if DisableYAMLMarshalComments {
		return &node, nil
	}

	descriptions := make(map[string]string, tp.NumField())
	for i := 0; i < tp.NumField(); i++ {
		f := tp.Field(i)
		name := strings.Split(f.Tag.Get("yaml"), ",")[0]
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if desc := f.Tag.Get("description"); desc != "" {
			descriptions[name] = desc
		}
	}

	// Mapping nodes alternate keys and values.
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if desc, ok := descriptions[key.Value]; ok {
			key.HeadComment = wordwrap.WrapString(desc, 80) + "."
		}
	}

	return &node, nil
}

func structFields(tp reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, tp.NumField())
	for i := 0; i < tp.NumField(); i++ {
		f := tp.Field(i)
		if f.PkgPath != "" {
			continue
		}
		fields = append(fields, reflect.StructField{
			Name: f.Name,
			Type: f.Type,
			Tag:  f.Tag,
		})
	}
	return fields
}

// MustMarshalYAML marshals to YAML and panics on error.
func MustMarshalYAML(i interface{}) []byte {
	b, err := yaml.Marshal(i)
	if err != nil {
		panic(err)
	}
	return b
}

// StructToMap converts options to a generic map keyed by
// their YAML names, nil stays nil.
func StructToMap(val interface{}) map[string]interface{} {
	if val == nil {
		return nil
	}

	var m map[string]interface{}
	if err := yaml.Unmarshal(MustMarshalYAML(val), &m); err != nil {
		panic(err)
	}
	return m
}
