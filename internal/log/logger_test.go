package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeLastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	last := lines[len(lines)-1]
	var entry map[string]interface{}
	if err := json.Unmarshal(last, &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", last, err)
	}
	return entry
}

func TestConfigure_SetsServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf, Service: "fleetrelay-test", Version: "v9.9.9"})

	Base().Info().Msg("boot")

	entry := decodeLastLine(t, &buf)
	if entry["service"] != "fleetrelay-test" {
		t.Errorf("service = %v, want fleetrelay-test", entry["service"])
	}
	if entry["version"] != "v9.9.9" {
		t.Errorf("version = %v, want v9.9.9", entry["version"])
	}
}

func TestConfigure_DefaultsServiceName(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	Base().Info().Msg("boot")

	entry := decodeLastLine(t, &buf)
	if entry["service"] != "fleetrelay" {
		t.Errorf("service = %v, want default fleetrelay", entry["service"])
	}
}

func TestSetLevel_RejectsInvalidLevel(t *testing.T) {
	Configure(Config{Output: &bytes.Buffer{}})

	if err := SetLevel("not-a-level"); err == nil {
		t.Fatal("expected an error for an invalid log level")
	}
}

func TestSetLevel_AcceptsValidLevel(t *testing.T) {
	Configure(Config{Output: &bytes.Buffer{}})

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("unexpected error setting a valid level: %v", err)
	}
}

func TestWithComponent_AnnotatesField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	WithComponent("coordinator").Info().Msg("hello")

	entry := decodeLastLine(t, &buf)
	if entry["component"] != "coordinator" {
		t.Errorf("component = %v, want coordinator", entry["component"])
	}
}

func TestWithVehicle_AnnotatesField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	WithVehicle("LON-ES001").Warn().Msg("lock")

	entry := decodeLastLine(t, &buf)
	if entry["vehicle_id"] != "LON-ES001" {
		t.Errorf("vehicle_id = %v, want LON-ES001", entry["vehicle_id"])
	}
}

func TestAuditComponent_IsDistinctFromBase(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	AuditComponent().Info().Msg("entry appended")

	entry := decodeLastLine(t, &buf)
	if entry["component"] != "audit" {
		t.Errorf("component = %v, want audit", entry["component"])
	}
}

func TestL_ReturnsUsableLoggerPointer(t *testing.T) {
	Configure(Config{Output: &bytes.Buffer{}})

	l := L()
	if l == nil {
		t.Fatal("L() returned nil")
	}
}

func TestEnsureInitialized_NoExplicitConfigure(t *testing.T) {
	// Reset package state so ensureInitialized has to configure lazily.
	mu.Lock()
	initialized = false
	mu.Unlock()

	_ = Base()

	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		t.Error("expected ensureInitialized to configure the logger lazily")
	}
}
