// Command probe exercises a running predictor over HTTP and checks the
// response contract of /readyz and /predict.
//
// Usage:
//
//	go run ./cmd/probe -addr http://localhost:8000
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
)

// referenceBody is the documented example request.
const referenceBody = `{"lat":35.67,"lon":139.65,"wind_speed":12,"temperature":18,"last_threat_count":3}`

// phase tracks pass/fail for a probe phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type prober struct {
	base   string
	client *http.Client
}

func main() {
	addr := flag.String("addr", "http://localhost:8000", "base URL of the predictor")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	p := &prober{base: *addr, client: &http.Client{Timeout: *timeout}}
	os.Exit(p.run(os.Stdout))
}

func (p *prober) run(out io.Writer) int {
	fmt.Fprintf(out, "=== Probing %s ===\n\n", p.base)

	phases := []*phase{
		p.checkReady(),
		p.checkReference(),
		p.checkRejects(),
	}

	allPassed := true
	for _, ph := range phases {
		status := "PASS"
		if !ph.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(ph.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-36s %s\n", ph.name, status)
	}

	for _, ph := range phases {
		if ph.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", ph.name)
		for i, e := range ph.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll probes passed.")
		return 0
	}
	fmt.Fprintln(out, "\nProbe FAILED.")
	return 1
}

func (p *prober) checkReady() *phase {
	ph := &phase{name: "Readiness"}
	resp, err := p.client.Get(p.base + "/readyz")
	if err != nil {
		ph.errorf("GET /readyz: %v", err)
		return ph
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		ph.errorf("GET /readyz: status %d, want 200", resp.StatusCode)
	}
	return ph
}

func (p *prober) checkReference() *phase {
	ph := &phase{name: "Reference prediction"}

	first, ok := p.predict(ph, referenceBody)
	if !ok {
		return ph
	}
	if first.Score < 0 || first.Score > 1 {
		ph.errorf("risk_score %v outside [0,1]", first.Score)
	}
	if want := domain.ClassifyScore(first.Score); first.Level != want {
		ph.errorf("risk_level %q inconsistent with score %v (want %q)", first.Level, first.Score, want)
	}

	second, ok := p.predict(ph, referenceBody)
	if ok && second != first {
		ph.errorf("repeated request differs: %+v then %+v", first, second)
	}
	return ph
}

func (p *prober) checkRejects() *phase {
	ph := &phase{name: "Validation rejects"}
	bodies := map[string]string{
		"wrong type":     `{"lat":35.67,"lon":139.65,"wind_speed":"twelve","temperature":18,"last_threat_count":3}`,
		"missing fields": `{"lat":35.67}`,
		"malformed JSON": `{"lat":`,
	}
	for name, body := range bodies {
		status, _, err := p.post(body)
		if err != nil {
			ph.errorf("%s: %v", name, err)
			continue
		}
		if status != http.StatusUnprocessableEntity {
			ph.errorf("%s: status %d, want 422", name, status)
		}
	}
	return ph
}

func (p *prober) predict(ph *phase, body string) (domain.Assessment, bool) {
	status, raw, err := p.post(body)
	if err != nil {
		ph.errorf("POST /predict: %v", err)
		return domain.Assessment{}, false
	}
	if status != http.StatusOK {
		ph.errorf("POST /predict: status %d, want 200: %s", status, raw)
		return domain.Assessment{}, false
	}
	var a domain.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		ph.errorf("decode response: %v", err)
		return domain.Assessment{}, false
	}
	return a, true
}

func (p *prober) post(body string) (int, []byte, error) {
	resp, err := p.client.Post(p.base+"/predict", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}
