package manifest

import (
	"fmt"

	"github.com/gezibash/hookmeta/internal/cel"
	"github.com/gezibash/hookmeta/internal/resolver"
	"github.com/gezibash/hookmeta/pkg/webhook"
)

// Descriptors converts the document's receivers and legacy entries into
// descriptors, in declaration order.
func (d *Document) Descriptors() ([]webhook.Descriptor, error) {
	var out []webhook.Descriptor
	for i, rs := range d.Receivers {
		descs, err := rs.descriptors()
		if err != nil {
			return nil, fmt.Errorf("receivers[%d] %q: %w", i, rs.Name, err)
		}
		out = append(out, descs...)
	}
	for i, ls := range d.Legacy {
		bt, err := ls.BodyType.Value()
		if err != nil {
			return nil, fmt.Errorf("legacy[%d]: %w", i, err)
		}
		out = append(out, webhook.LegacyBodyTypeMarker{BodyType: bt})
	}
	return out, nil
}

func (rs ReceiverSpec) descriptors() ([]webhook.Descriptor, error) {
	var rule *cel.Rule
	if rs.ApplicableWhen != "" {
		var err error
		if rule, err = cel.Compile(rs.ApplicableWhen); err != nil {
			return nil, fmt.Errorf("applicable_when: %w", err)
		}
	}
	receiver := func(kind webhook.Kind) webhook.Receiver {
		r := webhook.Receiver{Name: rs.Name}
		if rule != nil {
			r.Applicable = rule.Predicate(rs.Name, kind)
		}
		return r
	}

	var out []webhook.Descriptor
	if rs.Binding != nil {
		out = append(out, webhook.NewBindingMetadata(receiver(webhook.KindBinding), rs.Binding.parameters()...))
	}
	if rs.BodyType != nil {
		bt, err := rs.BodyType.Value()
		if err != nil {
			return nil, fmt.Errorf("body_type: %w", err)
		}
		out = append(out, webhook.BodyTypeMetadata{Receiver: receiver(webhook.KindBodyType), BodyType: bt})
	}
	if e := rs.EventFromBody; e != nil {
		out = append(out, webhook.NewEventFromBodyMetadata(receiver(webhook.KindEventFromBody), e.AllowMissing, e.Paths...))
	}
	if e := rs.Event; e != nil {
		out = append(out, e.metadata(receiver(webhook.KindEvent)))
	}
	if g := rs.GetHead; g != nil {
		out = append(out, webhook.GetHeadRequestMetadata{
			Receiver:                    receiver(webhook.KindGetHeadRequest),
			AllowHead:                   g.AllowHead,
			ChallengeQueryParameterName: g.ChallengeParameter,
			SecretKeyMinLength:          g.SecretMin,
			SecretKeyMaxLength:          g.SecretMax,
		})
	}
	if p := rs.Ping; p != nil {
		out = append(out, webhook.PingRequestMetadata{Receiver: receiver(webhook.KindPingRequest), PingEventName: p.Event})
	}
	if v := rs.VerifyCode; v != nil {
		out = append(out, webhook.VerifyCodeMetadata{Receiver: receiver(webhook.KindVerifyCode), CodeParameterName: v.Parameter})
	}
	return out, nil
}

func (b *BindingSpec) parameters() []webhook.BindingParameter {
	params := make([]webhook.BindingParameter, len(b.Parameters))
	for i, p := range b.Parameters {
		params[i] = webhook.BindingParameter{
			Name:     p.Name,
			Source:   webhook.ParameterSource(p.Source),
			Key:      p.Key,
			Required: p.Required,
		}
	}
	return params
}

func (e *EventSpec) metadata(r webhook.Receiver) webhook.EventMetadata {
	return webhook.EventMetadata{
		Receiver:           r,
		HeaderName:         e.Header,
		QueryParameterName: e.Query,
		ConstantValue:      e.Constant,
		PingEventName:      e.PingEvent,
	}
}

// ResolverEndpoints converts the document's endpoints. Inline capabilities are owned
// by the endpoint's own receiver name.
func (d *Document) ResolverEndpoints() ([]resolver.Endpoint, error) {
	out := make([]resolver.Endpoint, 0, len(d.Endpoints))
	for i, es := range d.Endpoints {
		bt, err := es.BodyType.Value()
		if err != nil {
			return nil, fmt.Errorf("endpoints[%d] %q: body_type: %w", i, es.ID, err)
		}
		sel := webhook.Selector{
			ReceiverName: es.Receiver,
			EventName:    es.Event,
			BodyType:     bt,
		}
		owner := webhook.Receiver{Name: es.Receiver}
		if es.Binding != nil {
			b := webhook.NewBindingMetadata(owner, es.Binding.parameters()...)
			sel.Binding = &b
		}
		if es.Ping != nil {
			sel.Ping = &webhook.PingRequestMetadata{Receiver: owner, PingEventName: es.Ping.Event}
		}
		out = append(out, resolver.Endpoint{ID: es.ID, Selector: sel})
	}
	return out, nil
}
