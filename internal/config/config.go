// Package config loads videocap settings from a TOML file, VIDEOCAP_*
// environment variables and command-line flags, and watches the file for
// device-setting changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/videocap/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to every `env` tag.
const EnvPrefix = "VIDEOCAP_"

var durationType = reflect.TypeFor[time.Duration]()

// binding ties one options field to its three sources.
type binding struct {
	name    string
	field   reflect.Value
	flag    string
	tomlKey string
	env     string
}

func bindings(opts any) ([]binding, error) {
	v := reflect.ValueOf(opts)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("config: options must be a pointer to struct, got %T", opts)
	}
	v = v.Elem()
	t := v.Type()

	out := make([]binding, 0, t.NumField())
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		out = append(out, binding{
			name:    sf.Name,
			field:   v.Field(i),
			flag:    fieldNameToFlag(sf.Name),
			tomlKey: sf.Tag.Get("toml"),
			env:     sf.Tag.Get("env"),
		})
	}
	return out, nil
}

// LoadConfig fills opts with precedence CLI flags > environment > config
// file. The file is named by a string field called Config; a missing file
// is not an error. Flags changed on cmd are never overwritten.
func LoadConfig(opts any, cmd *cobra.Command) error {
	fields, err := bindings(opts)
	if err != nil {
		return err
	}

	changed := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
	}

	var path string
	for _, b := range fields {
		if b.name == "Config" && b.field.Kind() == reflect.String {
			path = b.field.String()
		}
	}

	doc, err := readDocument(path)
	if err != nil {
		return err
	}

	var errs []error
	for _, b := range fields {
		if changed[b.flag] {
			continue
		}
		if b.tomlKey != "" && doc != nil {
			if raw, ok := lookup(doc, b.tomlKey); ok {
				if setErr := setFromTOML(b.field, raw); setErr != nil {
					errs = append(errs, fmt.Errorf("%s: %w", b.tomlKey, setErr))
				}
			}
		}
		if b.env != "" {
			if s, ok := os.LookupEnv(EnvPrefix + b.env); ok && s != "" {
				if setErr := setFromString(b.field, s); setErr != nil {
					errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, b.env, setErr))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// readDocument parses path into a generic table. It returns nil, nil when
// there is nothing to read.
func readDocument(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return doc, nil
}

// fieldNameToFlag converts a struct field name to a CLI flag name.
// Example: "LoggingLevel" -> "logging-level", "Port" -> "port".
func fieldNameToFlag(fieldName string) string {
	var result []rune
	for i, r := range fieldName {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '-')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// lookup resolves a dotted key such as "device.bus_id".
func lookup(doc map[string]any, key string) (any, bool) {
	table := doc
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := table[part].(map[string]any)
		if !ok {
			return nil, false
		}
		table = next
	}
	v, ok := table[parts[len(parts)-1]]
	return v, ok
}

func setFromTOML(field reflect.Value, raw any) error {
	if s, ok := raw.(string); ok {
		return setFromString(field, s)
	}

	switch field.Kind() {
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return fmt.Errorf("want bool, got %T", raw)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, ok := raw.(int64)
		if !ok {
			return fmt.Errorf("want integer, got %T", raw)
		}
		if field.Type() == durationType {
			n *= int64(time.Millisecond)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint32:
		n, ok := raw.(int64)
		if !ok || n < 0 {
			return fmt.Errorf("want unsigned integer, got %v", raw)
		}
		field.SetUint(uint64(n))
	case reflect.Float64:
		switch n := raw.(type) {
		case float64:
			field.SetFloat(n)
		case int64:
			field.SetFloat(float64(n))
		default:
			return fmt.Errorf("want number, got %T", raw)
		}
	case reflect.Slice:
		items, ok := raw.([]any)
		if !ok || field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("want string array, got %T", raw)
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, isString := item.(string)
			if !isString {
				return fmt.Errorf("want string array element, got %T", item)
			}
			out = append(out, s)
		}
		field.Set(reflect.ValueOf(out))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// setFromString parses s into field. Durations accept Go syntax ("250ms");
// string slices are comma separated.
func setFromString(field reflect.Value, s string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint32:
		n, err := strconv.ParseUint(s, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice of %s", field.Type().Elem())
		}
		parts := strings.Split(s, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field kind %s", field.Kind())
	}
	return nil
}

// LoadLoggingConfig reads the [logging] table. "level" and "format" are
// global; every other key is a per-module level. Defaults are returned
// when the file is missing or unreadable.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	doc, err := readDocument(configPath)
	if err != nil || doc == nil {
		return cfg
	}
	table, ok := doc["logging"].(map[string]any)
	if !ok {
		return cfg
	}

	for key, raw := range table {
		value, isString := raw.(string)
		if !isString {
			continue
		}
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
