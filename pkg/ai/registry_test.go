package ai

import (
	"context"
	"errors"
	"testing"
)

type registryStubProvider struct{ name string }

func (p *registryStubProvider) Name() string { return p.name }
func (p *registryStubProvider) Generate(context.Context, Request) (*Response, error) {
	return &Response{Text: "ok"}, nil
}
func (p *registryStubProvider) GenerateStream(context.Context, Request) (*Response, error) {
	return &Response{Text: "ok"}, nil
}
func (p *registryStubProvider) Metrics() ModelMetrics { return ModelMetrics{} }
func (p *registryStubProvider) ResetMetrics()         {}

func TestNewProvider_Registered(t *testing.T) {
	RegisterProvider("stub-registered", func(config ProviderConfig) (Provider, error) {
		if config.BaseURL != "http://example" {
			t.Errorf("factory config = %+v", config)
		}
		return &registryStubProvider{name: "stub-registered"}, nil
	})

	p, err := NewProvider("stub-registered", ProviderConfig{BaseURL: "http://example"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "stub-registered" {
		t.Errorf("provider name = %q", p.Name())
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider("smoke-signal", ProviderConfig{})
	if err == nil {
		t.Fatal("NewProvider succeeded for an unknown name")
	}
	var aiErr *Error
	if !errors.As(err, &aiErr) || aiErr.Reason != ReasonUnsupportedProvider {
		t.Errorf("err = %v, want unsupported_provider", err)
	}
	if !IsConfiguration(err) {
		t.Error("unsupported provider not classified as configuration error")
	}
}

func TestRegisterProvider_Duplicate(t *testing.T) {
	factory := func(ProviderConfig) (Provider, error) {
		return &registryStubProvider{name: "stub-dup"}, nil
	}
	RegisterProvider("stub-dup", factory)

	defer func() {
		if recover() == nil {
			t.Error("duplicate registration did not panic")
		}
	}()
	RegisterProvider("stub-dup", factory)
}
