package otel

import (
	"context"
	"reflect"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" authorization=Bearer abc , x-team = mars,broken, =skip,")
	want := map[string]string{"authorization": "Bearer abc", "x-team": "mars"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without service name")
	}
}

func TestInitWithoutExportersIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "marsd"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSampleRatioClamps(t *testing.T) {
	cases := map[float64]float64{0: 1, -0.5: 1, 1.5: 1, 0.25: 0.25, 1: 1}
	for in, want := range cases {
		if got := sampleRatio(in); got != want {
			t.Fatalf("sampleRatio(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestNewResourceCarriesVersion(t *testing.T) {
	res, err := newResource(Config{ServiceName: "marsd", ServiceVersion: "2.0.0", Environment: "test"})
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if string(kv.Key) == "service.version" && kv.Value.AsString() == "2.0.0" {
			found = true
		}
	}
	if !found {
		t.Fatalf("service.version missing from %v", res.Attributes())
	}
}
