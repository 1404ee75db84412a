// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Socket   string        `flag:"socket" desc:"binder socket path"`
		Verbose  bool          `flag:"verbose,v" desc:"enable verbose output"`
		Count    int           `flag:"count" desc:"number of items"`
		Offset   int64         `flag:"offset" desc:"byte offset"`
		Rate     float64       `flag:"rate" desc:"sampling rate"`
		Timeout  time.Duration `flag:"timeout" desc:"request timeout"`
		Stems    []string      `flag:"stems" desc:"binding stems"`
		Untagged string        // no flag tag — should be skipped
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--socket", "/run/bindery/binder.sock",
		"-v",
		"--count", "42",
		"--offset", "1099511627776",
		"--rate", "0.95",
		"--timeout", "30s",
		"--stems", "vehicle,cabin,doors",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Socket != "/run/bindery/binder.sock" {
		t.Errorf("Socket = %q, want the socket path", p.Socket)
	}
	if !p.Verbose {
		t.Error("Verbose = false, want true")
	}
	if p.Count != 42 {
		t.Errorf("Count = %d, want 42", p.Count)
	}
	if p.Offset != 1099511627776 {
		t.Errorf("Offset = %d, want 1099511627776", p.Offset)
	}
	if p.Rate != 0.95 {
		t.Errorf("Rate = %f, want 0.95", p.Rate)
	}
	if p.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", p.Timeout)
	}
	if len(p.Stems) != 3 || p.Stems[0] != "vehicle" || p.Stems[1] != "cabin" || p.Stems[2] != "doors" {
		t.Errorf("Stems = %v, want [vehicle cabin doors]", p.Stems)
	}
	if p.Untagged != "" {
		t.Errorf("Untagged = %q, want empty (should be skipped)", p.Untagged)
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Socket  string        `flag:"socket" desc:"binder socket" default:"/run/bindery/binder.sock"`
		Port    int           `flag:"port" desc:"server port" default:"8080"`
		Offset  int64         `flag:"offset" desc:"byte offset" default:"100"`
		Rate    float64       `flag:"rate" desc:"rate" default:"0.5"`
		Timeout time.Duration `flag:"timeout" desc:"timeout" default:"10s"`
		Debug   bool          `flag:"debug" desc:"debug mode" default:"true"`
		Stems   []string      `flag:"stems" desc:"stems" default:"x,y"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	// Parse with no arguments — should get all defaults.
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Socket != "/run/bindery/binder.sock" {
		t.Errorf("Socket = %q, want the default socket", p.Socket)
	}
	if p.Port != 8080 {
		t.Errorf("Port = %d, want 8080", p.Port)
	}
	if p.Offset != 100 {
		t.Errorf("Offset = %d, want 100", p.Offset)
	}
	if p.Rate != 0.5 {
		t.Errorf("Rate = %f, want 0.5", p.Rate)
	}
	if p.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", p.Timeout)
	}
	if !p.Debug {
		t.Error("Debug = false, want true")
	}
	if len(p.Stems) != 2 || p.Stems[0] != "x" || p.Stems[1] != "y" {
		t.Errorf("Stems = %v, want [x y]", p.Stems)
	}
}

func TestBindFlags_DefaultsOverriddenByCLI(t *testing.T) {
	type params struct {
		Socket string `flag:"socket" desc:"binder socket" default:"/run/bindery/binder.sock"`
		Port   int    `flag:"port" desc:"server port" default:"8080"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	if err := flagSet.Parse([]string{"--socket", "/tmp/test.sock", "--port", "9090"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Socket != "/tmp/test.sock" {
		t.Errorf("Socket = %q, want %q", p.Socket, "/tmp/test.sock")
	}
	if p.Port != 9090 {
		t.Errorf("Port = %d, want 9090", p.Port)
	}
}

func TestBindFlags_EmbeddedStructRecursion(t *testing.T) {
	type inner struct {
		Foo string `flag:"foo" desc:"foo flag"`
		Bar int    `flag:"bar" desc:"bar flag"`
	}
	type params struct {
		inner
		Baz bool `flag:"baz" desc:"baz flag"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	if err := flagSet.Parse([]string{"--foo", "hello", "--bar", "5", "--baz"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Foo != "hello" {
		t.Errorf("Foo = %q, want %q", p.Foo, "hello")
	}
	if p.Bar != 5 {
		t.Errorf("Bar = %d, want 5", p.Bar)
	}
	if !p.Baz {
		t.Error("Baz = false, want true")
	}
}

func TestBindFlags_Shorthand(t *testing.T) {
	type params struct {
		Payload string `flag:"payload,p" desc:"call payload"`
		Verbose bool   `flag:"verbose,v" desc:"verbose mode"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	if err := flagSet.Parse([]string{"-p", `{"kph":30}`, "-v"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Payload != `{"kph":30}` {
		t.Errorf("Payload = %q, want the JSON object", p.Payload)
	}
	if !p.Verbose {
		t.Error("Verbose = false, want true")
	}
}

func TestBindFlags_ErrorNotPointer(t *testing.T) {
	type params struct {
		Name string `flag:"name"`
	}
	var p params
	err := BindFlags(p, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil {
		t.Fatal("expected error for non-pointer, got nil")
	}
	if want := "params must be a pointer to a struct"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want substring %q", err.Error(), want)
	}
}

func TestBindFlags_ErrorNotStruct(t *testing.T) {
	s := "not a struct"
	err := BindFlags(&s, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil {
		t.Fatal("expected error for non-struct, got nil")
	}
}

func TestBindFlags_ErrorBadDefault(t *testing.T) {
	type params struct {
		Count int `flag:"count" default:"not_a_number"`
	}
	var p params
	err := BindFlags(&p, pflag.NewFlagSet("test", pflag.ContinueOnError))
	if err == nil {
		t.Fatal("expected error for bad default, got nil")
	}
}

func TestFlagsFromParams(t *testing.T) {
	type params struct {
		Name string `flag:"name" desc:"the name" default:"world"`
	}

	var p params
	flagSet := FlagsFromParams("test", &p)

	if err := flagSet.Parse([]string{"--name", "alice"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "alice" {
		t.Errorf("Name = %q, want %q", p.Name, "alice")
	}
}

func TestFlagsFromParams_DefaultUsedWhenNotParsed(t *testing.T) {
	type params struct {
		Name string `flag:"name" desc:"the name" default:"world"`
	}

	var p params
	flagSet := FlagsFromParams("test", &p)

	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "world" {
		t.Errorf("Name = %q, want %q", p.Name, "world")
	}
}

func TestFlagsFromParams_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for nil input, got none")
		}
	}()
	FlagsFromParams("test", nil)
}

func TestBindFlags_FieldsWithoutTagSkipped(t *testing.T) {
	type params struct {
		Tagged   string `flag:"tagged" desc:"has tag"`
		NoTag    string
		JSONOnly string `json:"json_only"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	// Only --tagged should be registered.
	if flagSet.Lookup("tagged") == nil {
		t.Error("expected --tagged to be registered")
	}
	if flagSet.Lookup("no-tag") != nil {
		t.Error("expected no --no-tag flag")
	}
	if flagSet.Lookup("json_only") != nil {
		t.Error("expected no --json_only flag")
	}
}

func TestBindFlags_PositionalArgsRemain(t *testing.T) {
	type params struct {
		Format string `flag:"format" desc:"output format" default:"table"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	if err := flagSet.Parse([]string{"--format", "json", "speedometer"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	remaining := flagSet.Args()
	if len(remaining) != 1 || remaining[0] != "speedometer" {
		t.Errorf("remaining args = %v, want [speedometer]", remaining)
	}
	if p.Format != "json" {
		t.Errorf("Format = %q, want %q", p.Format, "json")
	}
}
