package report

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/haukened/dnsq/internal/dns/domain"
)

// YAMLRenderer emits the same data as TextRenderer as a single YAML document.
type YAMLRenderer struct{}

type yamlDocument struct {
	Query    yamlQuery     `yaml:"query"`
	Response *yamlResponse `yaml:"response,omitempty"`
	NotFound bool          `yaml:"not_found"`
	Error    string        `yaml:"error,omitempty"`
}

type yamlQuery struct {
	Name   string `yaml:"name"`
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`
	Type   string `yaml:"type"`
}

type yamlResponse struct {
	ElapsedSeconds float64      `yaml:"elapsed_seconds"`
	Retries        int          `yaml:"retries"`
	Authoritative  bool         `yaml:"authoritative"`
	Warnings       []string     `yaml:"warnings,omitempty"`
	Answers        []yamlRecord `yaml:"answers,omitempty"`
	Additional     []yamlRecord `yaml:"additional,omitempty"`
}

type yamlRecord struct {
	Type       string `yaml:"type"`
	Name       string `yaml:"name"`
	TTL        uint32 `yaml:"ttl"`
	Address    string `yaml:"address,omitempty"`
	Target     string `yaml:"target,omitempty"`
	Preference uint16 `yaml:"preference,omitempty"`
	Error      string `yaml:"error,omitempty"`
}

func (YAMLRenderer) Render(w io.Writer, rep Report) error {
	doc := yamlDocument{
		Query: yamlQuery{
			Name:   rep.Request.Name,
			Server: rep.Request.Server,
			Port:   rep.Request.Port,
			Type:   rep.Request.Type.String(),
		},
		NotFound: rep.NotFound(),
	}
	if rep.Failed() {
		doc.Error = rep.Err.Error()
	}

	res := rep.Result
	if res.Received {
		doc.Response = &yamlResponse{
			ElapsedSeconds: res.Elapsed.Seconds(),
			Retries:        res.Retries,
		}
		if rep.Err == nil {
			resp := res.Response
			doc.Response.Authoritative = resp.Authoritative()
			doc.Response.Warnings = resp.Warnings
			doc.Response.Answers = yamlRecords(resp.Answers)
			doc.Response.Additional = yamlRecords(resp.Additional)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func yamlRecords(records []domain.RecordOutcome) []yamlRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]yamlRecord, 0, len(records))
	for _, o := range records {
		rr := o.Record
		rec := yamlRecord{
			Type: rr.Type.String(),
			Name: rr.Name,
			TTL:  rr.TTL,
		}
		if !o.OK() {
			rec.Error = o.Err.Error()
			out = append(out, rec)
			continue
		}
		switch rr.Type {
		case domain.RRTypeA:
			rec.Address = rr.Address.String()
		case domain.RRTypeMX:
			rec.Preference = rr.Preference
			rec.Target = rr.Target
		default:
			rec.Target = rr.Target
		}
		out = append(out, rec)
	}
	return out
}
