// Package manifest reads declarative receiver manifests and turns them into
// capability descriptors and endpoints.
//
// A manifest is a YAML document with a receivers list, each entry yielding one
// descriptor per capability it declares, and an endpoints list whose entries
// become resolver endpoints. Documents are checked against the generated JSON
// Schema and then against struct validation rules before conversion.
package manifest

import (
	"fmt"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/gezibash/hookmeta/pkg/webhook"
)

// Document is one manifest file.
type Document struct {
	Receivers []ReceiverSpec `yaml:"receivers,omitempty" json:"receivers,omitempty" validate:"dive"`
	Endpoints []EndpointSpec `yaml:"endpoints,omitempty" json:"endpoints,omitempty" validate:"dive"`
	// Legacy declares body types without a receiver. They are always
	// rejected by validation and exist to surface older plugin configs.
	Legacy []LegacySpec `yaml:"legacy,omitempty" json:"legacy,omitempty" validate:"dive"`
}

// ReceiverSpec declares the capabilities of one receiver.
type ReceiverSpec struct {
	Name           string             `yaml:"name" json:"name" validate:"required" jsonschema:"minLength=1"`
	ApplicableWhen string             `yaml:"applicable_when,omitempty" json:"applicable_when,omitempty" jsonschema_description:"CEL expression over receiver, name and kind"`
	BodyType       *BodyTypeSpec      `yaml:"body_type,omitempty" json:"body_type,omitempty"`
	Binding        *BindingSpec       `yaml:"binding,omitempty" json:"binding,omitempty"`
	Event          *EventSpec         `yaml:"event,omitempty" json:"event,omitempty"`
	EventFromBody  *EventFromBodySpec `yaml:"event_from_body,omitempty" json:"event_from_body,omitempty"`
	GetHead        *GetHeadSpec       `yaml:"get_head,omitempty" json:"get_head,omitempty"`
	Ping           *PingSpec          `yaml:"ping,omitempty" json:"ping,omitempty"`
	VerifyCode     *VerifyCodeSpec    `yaml:"verify_code,omitempty" json:"verify_code,omitempty"`
}

type BindingSpec struct {
	Parameters []ParameterSpec `yaml:"parameters,omitempty" json:"parameters,omitempty" validate:"dive"`
}

type ParameterSpec struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Source   string `yaml:"source" json:"source" validate:"oneof=header query route" jsonschema:"enum=header,enum=query,enum=route"`
	Key      string `yaml:"key" json:"key" validate:"required"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// EventSpec reads the event name from a header, a query parameter or a
// constant; at least one must be set.
type EventSpec struct {
	Header    string `yaml:"header,omitempty" json:"header,omitempty" validate:"required_without_all=Query Constant"`
	Query     string `yaml:"query,omitempty" json:"query,omitempty"`
	Constant  string `yaml:"constant,omitempty" json:"constant,omitempty"`
	PingEvent string `yaml:"ping_event,omitempty" json:"ping_event,omitempty"`
}

type EventFromBodySpec struct {
	Paths        []string `yaml:"paths" json:"paths" validate:"min=1,dive,required" jsonschema:"minItems=1"`
	AllowMissing bool     `yaml:"allow_missing,omitempty" json:"allow_missing,omitempty"`
}

type GetHeadSpec struct {
	AllowHead          bool   `yaml:"allow_head,omitempty" json:"allow_head,omitempty"`
	ChallengeParameter string `yaml:"challenge_parameter,omitempty" json:"challenge_parameter,omitempty"`
	SecretMin          int    `yaml:"secret_min,omitempty" json:"secret_min,omitempty" validate:"gte=0" jsonschema:"minimum=0"`
	SecretMax          int    `yaml:"secret_max,omitempty" json:"secret_max,omitempty" validate:"omitempty,gtefield=SecretMin" jsonschema:"minimum=0"`
}

type PingSpec struct {
	Event string `yaml:"event" json:"event" validate:"required"`
}

type VerifyCodeSpec struct {
	Parameter string `yaml:"parameter" json:"parameter" validate:"required"`
}

// EndpointSpec declares one endpoint. An empty Receiver makes it general.
type EndpointSpec struct {
	ID       string        `yaml:"id" json:"id" validate:"required" jsonschema:"minLength=1"`
	Receiver string        `yaml:"receiver,omitempty" json:"receiver,omitempty"`
	BodyType *BodyTypeSpec `yaml:"body_type,omitempty" json:"body_type,omitempty"`
	Event    string        `yaml:"event,omitempty" json:"event,omitempty"`
	Binding  *BindingSpec  `yaml:"binding,omitempty" json:"binding,omitempty"`
	Ping     *PingSpec     `yaml:"ping,omitempty" json:"ping,omitempty"`
}

type LegacySpec struct {
	BodyType *BodyTypeSpec `yaml:"body_type,omitempty" json:"body_type,omitempty"`
}

// BodyTypeSpec accepts a list of format names, a single name, or raw flag
// bits as an integer.
type BodyTypeSpec struct {
	Names []string
	Flags int
}

func (b *BodyTypeSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		return n.Decode(&b.Names)
	case yaml.ScalarNode:
		if n.Tag == "!!int" {
			return n.Decode(&b.Flags)
		}
		b.Names = []string{n.Value}
		return nil
	default:
		return fmt.Errorf("line %d: body_type must be a name, a list of names or an integer", n.Line)
	}
}

// Value returns the flag set. Unknown names are an error; flag values are
// returned as given so validation can report them.
func (b *BodyTypeSpec) Value() (webhook.BodyType, error) {
	if b == nil {
		return 0, nil
	}
	names, err := webhook.ParseBodyType(b.Names...)
	if err != nil {
		return 0, err
	}
	return names | webhook.BodyType(b.Flags), nil
}

func (BodyTypeSpec) JSONSchema() *jsonschema.Schema {
	name := &jsonschema.Schema{Type: "string", Enum: []any{"json", "xml", "form"}}
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			name,
			{Type: "array", Items: name},
			{Type: "integer"},
		},
		Description: "json, xml, form, a list of them, or raw flag bits",
	}
}
