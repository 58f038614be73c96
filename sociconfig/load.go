package sociconfig

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format describes the serialization format of a session config file.
type Format string

const (
	// FormatAuto detects the format from the file extension.
	FormatAuto Format = ""
	// FormatYAML parses YAML documents (.yaml/.yml).
	FormatYAML Format = "yaml"
	// FormatJSON parses JSON documents (.json).
	FormatJSON Format = "json"
)

type loadOptions struct {
	envEnabled     bool
	envPrefix      string
	envLookup      func(string) (string, bool)
	fileReader     func(string) ([]byte, error)
	sliceSeparator string
	format         Format
}

func defaultLoadOptions() loadOptions {
	return loadOptions{
		envEnabled:     true,
		envLookup:      os.LookupEnv,
		fileReader:     os.ReadFile,
		sliceSeparator: ",",
		format:         FormatAuto,
	}
}

// LoadOption configures Load's behavior.
type LoadOption func(*loadOptions)

// WithEnv controls whether environment overrides are applied (enabled by
// default).
func WithEnv(enabled bool) LoadOption {
	return func(o *loadOptions) { o.envEnabled = enabled }
}

// WithoutEnv disables environment overrides entirely.
func WithoutEnv() LoadOption {
	return WithEnv(false)
}

// WithEnvPrefix configures a prefix automatically prepended to inferred
// environment variable names (e.g. SOCI_BACKEND).
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) { o.envPrefix = prefix }
}

// WithEnvLookup injects a custom environment lookup function, for tests.
func WithEnvLookup(fn func(string) (string, bool)) LoadOption {
	return func(o *loadOptions) {
		if fn != nil {
			o.envLookup = fn
		}
	}
}

// WithFileSystem loads the config file from fsys instead of the host OS.
// Paths are interpreted relative to the filesystem root.
func WithFileSystem(fsys fs.FS) LoadOption {
	return func(o *loadOptions) {
		if fsys == nil {
			return
		}
		if readFS, ok := fsys.(fs.ReadFileFS); ok {
			o.fileReader = readFS.ReadFile
			return
		}
		o.fileReader = func(name string) ([]byte, error) {
			return fs.ReadFile(fsys, name)
		}
	}
}

// WithSliceSeparator overrides the default separator (",") used when
// parsing string-slice environment variables.
func WithSliceSeparator(sep string) LoadOption {
	return func(o *loadOptions) {
		if sep != "" {
			o.sliceSeparator = sep
		}
	}
}

// WithFormat forces loadFile to parse the given format instead of relying
// on file extension detection.
func WithFormat(format Format) LoadOption {
	return func(o *loadOptions) { o.format = format }
}

// loadFile reads path into target (a pointer to a struct) and applies
// environment variable overrides, the engine behind Load. Ground truth:
// koanf.Koanf used as an unmarshal target, layering a confmap provider of
// env overrides on top of the parsed file.
func loadFile(path string, target any, opts ...LoadOption) error {
	if target == nil {
		return fmt.Errorf("sociconfig: target cannot be nil")
	}

	o := defaultLoadOptions()
	for _, opt := range opts {
		opt(&o)
	}

	data, err := o.fileReader(path)
	if err != nil {
		return fmt.Errorf("sociconfig: read %q: %w", path, err)
	}

	format, err := resolveFormat(path, o.format)
	if err != nil {
		return err
	}

	k := koanf.New(".")
	parser, err := parserFor(format)
	if err != nil {
		return err
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("sociconfig: parse %q: %w", path, err)
	}

	metas, err := prepareFieldMeta(target, o)
	if err != nil {
		return err
	}

	if o.envEnabled {
		if err := mergeEnv(k, metas, o); err != nil {
			return err
		}
	}

	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("sociconfig: unmarshal: %w", err)
	}

	return applyDefaults(target, metas)
}

func resolveFormat(path string, forced Format) (Format, error) {
	switch forced {
	case FormatJSON, FormatYAML:
		return forced, nil
	case FormatAuto:
	default:
		if forced != "" {
			return "", fmt.Errorf("sociconfig: unsupported format %q", forced)
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("sociconfig: could not detect config format from %q", path)
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatJSON:
		return json.Parser(), nil
	case FormatYAML:
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("sociconfig: unsupported format %q", format)
	}
}

var (
	durationType       = reflect.TypeOf(time.Duration(0))
	timeType           = reflect.TypeOf(time.Time{})
	matchFirstCap      = regexp.MustCompile("(.)([A-Z][a-z]+)")
	matchAllCap        = regexp.MustCompile("([a-z0-9])([A-Z])")
	repeatedUnderscore = regexp.MustCompile("__+")
)

type fieldMeta struct {
	key          string
	envVar       string
	separator    string
	fieldType    reflect.Type
	defaultValue string
	index        []int
}

func prepareFieldMeta(target any, opt loadOptions) ([]fieldMeta, error) {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return nil, fmt.Errorf("sociconfig: target must be a non-nil pointer")
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return nil, fmt.Errorf("sociconfig: target must point to a struct (got %T)", target)
	}

	var metas []fieldMeta
	collectFieldMeta(elem.Type(), nil, nil, opt, &metas)
	return metas, nil
}

func collectFieldMeta(typ reflect.Type, path []string, indexPrefix []int, opt loadOptions, metas *[]fieldMeta) {
	typ = derefType(typ)
	if typ.Kind() != reflect.Struct || typ == timeType {
		return
	}

	for i := 0; i < typ.NumField(); i++ {
		fieldInfo := typ.Field(i)
		if !fieldInfo.IsExported() {
			continue
		}

		baseName := baseFieldName(fieldInfo)
		if baseName == "" {
			continue
		}

		currentPath := withPath(path, baseName)
		fieldType := fieldInfo.Type
		indexPath := appendIndices(indexPrefix, fieldInfo.Index)

		if shouldDescend(fieldType) {
			collectFieldMeta(fieldType, currentPath, indexPath, opt, metas)
			continue
		}

		if !isSupportedLeaf(fieldType) {
			continue
		}

		sep := fieldInfo.Tag.Get("envSeparator")
		if sep == "" {
			sep = opt.sliceSeparator
		}

		meta := fieldMeta{
			key:       strings.Join(currentPath, "."),
			envVar:    buildEnvKey(currentPath, fieldInfo, opt.envPrefix),
			separator: sep,
			fieldType: fieldInfo.Type,
			index:     indexPath,
		}

		if def := fieldInfo.Tag.Get("envDefault"); def != "" {
			meta.defaultValue = def
		}

		*metas = append(*metas, meta)
	}
}

func mergeEnv(k *koanf.Koanf, metas []fieldMeta, opt loadOptions) error {
	overrides := make(map[string]any)

	for _, meta := range metas {
		if meta.envVar == "" {
			continue
		}
		raw, ok := opt.envLookup(meta.envVar)
		if !ok {
			continue
		}

		value, err := parseEnvValue(meta, raw)
		if err != nil {
			return fmt.Errorf("sociconfig: override %s: %w", meta.envVar, err)
		}
		overrides[meta.key] = value
	}

	if len(overrides) == 0 {
		return nil
	}

	if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
		return fmt.Errorf("sociconfig: apply env overrides: %w", err)
	}
	return nil
}

func parseEnvValue(meta fieldMeta, raw string) (any, error) {
	holder := reflect.New(meta.fieldType).Elem()
	if err := setFieldValue(holder, raw, meta.separator); err != nil {
		return nil, err
	}
	return holder.Interface(), nil
}

func applyDefaults(target any, metas []fieldMeta) error {
	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Pointer || val.IsNil() {
		return fmt.Errorf("sociconfig: target must be a non-nil pointer")
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return fmt.Errorf("sociconfig: target must point to a struct (got %T)", target)
	}

	for _, meta := range metas {
		if meta.defaultValue == "" {
			continue
		}

		field := elem.FieldByIndex(meta.index)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		if !field.IsZero() {
			continue
		}

		if err := setFieldValue(field, meta.defaultValue, meta.separator); err != nil {
			return fmt.Errorf("sociconfig: apply default for %s: %w", meta.key, err)
		}
	}

	return nil
}

func shouldDescend(t reflect.Type) bool {
	t = derefType(t)
	return t.Kind() == reflect.Struct && t != timeType
}

func isSupportedLeaf(t reflect.Type) bool {
	base := derefType(t)
	switch base.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return base.Elem().Kind() == reflect.String
	case reflect.Struct:
		return base == timeType
	default:
		return false
	}
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func appendIndices(prefix []int, idx []int) []int {
	out := make([]int, len(prefix)+len(idx))
	copy(out, prefix)
	copy(out[len(prefix):], idx)
	return out
}

func withPath(path []string, elem string) []string {
	if elem == "" {
		if len(path) == 0 {
			return nil
		}
		cp := make([]string, len(path))
		copy(cp, path)
		return cp
	}
	cp := make([]string, len(path)+1)
	copy(cp, path)
	cp[len(path)] = elem
	return cp
}

// baseFieldName derives the field's config key from its struct tags.
// Settings is tagged with koanf, the tag this module actually unmarshals
// through; mapstructure/yaml/json are honored too for any config-bearing
// struct a future caller tags differently.
func baseFieldName(field reflect.StructField) string {
	for _, key := range []string{"koanf", "mapstructure", "yaml", "json"} {
		if tag := cleanTag(field.Tag.Get(key)); tag != "" {
			return tag
		}
	}
	return field.Name
}

func cleanTag(tag string) string {
	if tag == "" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	tag = strings.TrimSpace(tag)
	if tag == "" || tag == "-" {
		return ""
	}
	return tag
}

func buildEnvKey(path []string, field reflect.StructField, prefix string) string {
	envTag := field.Tag.Get("env")
	if envTag == "-" {
		return ""
	}
	if envTag != "" {
		return envTag
	}
	if len(path) == 0 {
		return ""
	}

	parts := make([]string, 0, len(path))
	for _, part := range path {
		if part == "" {
			continue
		}
		segment := toScreamingSnake(part)
		if segment != "" {
			parts = append(parts, segment)
		}
	}

	if len(parts) == 0 {
		return ""
	}

	key := strings.Join(parts, "_")
	if prefix != "" {
		if p := toScreamingSnake(prefix); p != "" {
			key = p + "_" + key
		}
	}

	return key
}

func setFieldValue(value reflect.Value, raw, sliceSep string) error {
	if !value.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			value.Set(reflect.New(value.Type().Elem()))
		}
		return setFieldValue(value.Elem(), raw, sliceSep)
	}

	switch value.Kind() {
	case reflect.String:
		value.SetString(raw)
		return nil
	case reflect.Bool:
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		value.SetBool(parsed)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if value.Type() == durationType {
			dur, err := time.ParseDuration(raw)
			if err != nil {
				return err
			}
			value.SetInt(int64(dur))
			return nil
		}
		parsed, err := strconv.ParseInt(raw, 10, value.Type().Bits())
		if err != nil {
			return err
		}
		value.SetInt(parsed)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		parsed, err := strconv.ParseUint(raw, 10, value.Type().Bits())
		if err != nil {
			return err
		}
		value.SetUint(parsed)
		return nil
	case reflect.Float32, reflect.Float64:
		parsed, err := strconv.ParseFloat(raw, value.Type().Bits())
		if err != nil {
			return err
		}
		value.SetFloat(parsed)
		return nil
	case reflect.Slice:
		if value.Type().Elem().Kind() == reflect.String {
			value.Set(reflect.ValueOf(splitAndTrim(raw, sliceSep)))
			return nil
		}
		return fmt.Errorf("unsupported slice type %s", value.Type())
	case reflect.Struct:
		if value.Type() == timeType {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return err
			}
			value.Set(reflect.ValueOf(t))
			return nil
		}
	}

	return fmt.Errorf("unsupported type %s", value.Type())
}

func splitAndTrim(input, sep string) []string {
	if sep == "" {
		sep = ","
	}
	parts := strings.Split(input, sep)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		result = append(result, strings.TrimSpace(part))
	}
	return result
}

func toScreamingSnake(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	s = matchFirstCap.ReplaceAllString(s, "${1}_${2}")
	s = matchAllCap.ReplaceAllString(s, "${1}_${2}")
	s = repeatedUnderscore.ReplaceAllString(s, "_")
	return strings.ToUpper(s)
}
