package network

import (
	"context"
	"fmt"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	mdns "github.com/miekg/dns"
)

// Registration is the structured WHOIS record handed back for domain
// targets.
type Registration struct {
	Domain      string   `json:"domain"`
	Registrar   string   `json:"registrar,omitempty"`
	Registrant  string   `json:"registrant,omitempty"`
	Created     string   `json:"created,omitempty"`
	Updated     string   `json:"updated,omitempty"`
	Expires     string   `json:"expires,omitempty"`
	NameServers []string `json:"name_servers,omitempty"`
	Statuses    []string `json:"statuses,omitempty"`
	DNSSEC      bool     `json:"dnssec"`
	Raw         string   `json:"-"`
}

func parseRegistration(raw string) (*Registration, error) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return nil, err
	}
	reg := &Registration{Raw: raw}
	if info.Domain != nil {
		reg.Domain = info.Domain.Domain
		reg.Created = info.Domain.CreatedDate
		reg.Updated = info.Domain.UpdatedDate
		reg.Expires = info.Domain.ExpirationDate
		reg.NameServers = info.Domain.NameServers
		reg.Statuses = info.Domain.Status
		reg.DNSSEC = info.Domain.DNSSec
	}
	if info.Registrar != nil {
		reg.Registrar = info.Registrar.Name
	}
	if info.Registrant != nil {
		reg.Registrant = info.Registrant.Organization
		if reg.Registrant == "" {
			reg.Registrant = info.Registrant.Name
		}
	}
	return reg, nil
}

// whoisClient adapts the likexian client to the WhoisClient boundary.
type whoisClient struct{}

func (whoisClient) Whois(_ context.Context, target string) (string, error) {
	return whois.Whois(target)
}

// digClient issues record-type queries against one upstream server.
type digClient struct {
	server  string
	timeout time.Duration
}

func (d *digClient) Query(ctx context.Context, domain, recordType string) ([]string, error) {
	rt, ok := mdns.StringToType[strings.ToUpper(recordType)]
	if !ok {
		return nil, fmt.Errorf("unknown record type %q", recordType)
	}

	c := new(mdns.Client)
	c.Timeout = d.timeout
	msg := new(mdns.Msg)
	msg.SetQuestion(mdns.Fqdn(domain), rt)
	msg.RecursionDesired = true

	r, _, err := c.ExchangeContext(ctx, msg, d.server)
	if err != nil {
		return nil, err
	}
	if r.Rcode != mdns.RcodeSuccess {
		return nil, fmt.Errorf("server returned %s", mdns.RcodeToString[r.Rcode])
	}

	out := make([]string, 0, len(r.Answer))
	for _, rr := range r.Answer {
		out = append(out, rr.String())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %s records", strings.ToUpper(recordType))
	}
	return out, nil
}
