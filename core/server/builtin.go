package server

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"asset-pipeline/core/asset"

	"github.com/google/uuid"
)

// Stable type tags of the built-in asset types.
var (
	RawTag  = uuid.MustParse("7b0f0f2e-3a41-4c56-9a47-10b54e3d9c01")
	JSONTag = uuid.MustParse("4c9a1d83-6f2b-4e0d-8a31-52c7f8b1a902")
)

// RawAsset holds the unparsed bytes of a source. It is the fallback
// asset type for formats without a dedicated loader.
type RawAsset struct {
	Data []byte
}

// RawLoader loads any configured extension verbatim.
type RawLoader struct {
	Exts []string
}

func (l RawLoader) Name() string         { return "raw" }
func (l RawLoader) Extensions() []string { return l.Exts }

func (l RawLoader) Load(_ context.Context, lc *LoadContext) error {
	return lc.SetDefault(RawAsset{Data: append([]byte(nil), lc.Bytes()...)})
}

// JSONAsset is a parsed JSON document.
type JSONAsset struct {
	Value map[string]any
}

// JSONLoader parses .json sources into JSONAsset values.
type JSONLoader struct{}

func (JSONLoader) Name() string         { return "json" }
func (JSONLoader) Extensions() []string { return []string{"json"} }

func (JSONLoader) Load(_ context.Context, lc *LoadContext) error {
	var value map[string]any
	if err := json.Unmarshal(lc.Bytes(), &value); err != nil {
		return err
	}
	return lc.SetDefault(JSONAsset{Value: value})
}

// JSONSerializer writes JSONAsset values back out, enabling Save and
// import artifacts for them.
type JSONSerializer struct{}

func (JSONSerializer) TypeTag() uuid.UUID { return JSONTag }
func (JSONSerializer) Extension() string  { return "json" }

func (JSONSerializer) Serialize(value any) ([]byte, error) {
	v, ok := value.(JSONAsset)
	if !ok {
		return nil, fmt.Errorf("serialize: unexpected value type %T", value)
	}
	return json.MarshalIndent(v.Value, "", "  ")
}

// RegisterBuiltins installs the raw and JSON asset types with their
// stores, loaders and serializers. The daemon calls this at startup;
// library consumers register their own types instead or in addition.
func RegisterBuiltins(s *Server, rawExts []string) {
	s.RegisterStore(asset.NewAssets[RawAsset](RawTag, s.events))
	s.RegisterStore(asset.NewAssets[JSONAsset](JSONTag, s.events))
	s.AddLoader(JSONLoader{})
	if len(rawExts) > 0 {
		s.AddLoader(RawLoader{Exts: rawExts})
	}
	s.AddSerializer(reflect.TypeFor[JSONAsset](), JSONSerializer{})
}
