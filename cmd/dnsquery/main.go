package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jroosing/hydradns/internal/dns"
)

func main() {
	var (
		server   = flag.String("server", "8.8.8.8:53", "DNS server HOST:PORT")
		name     = flag.String("name", "example.com", "Query name")
		qtype    = flag.Int("qtype", 1, "Query type (numeric, A=1)")
		timeout  = flag.Duration("timeout", 2*time.Second, "Timeout")
		recvSize = flag.Int("recv-size", 2048, "UDP receive buffer size")
		quiet    = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	resp, err := queryUDP(*server, *name, uint16(*qtype), *timeout, *recvSize)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnsquery error: %v\n", err)
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}

	p, err := dns.ParsePacket(resp)
	if err != nil {
		fmt.Printf("received %d bytes (unparseable: %v)\n", len(resp), err)
		return
	}

	answers := p.Answers()
	fmt.Printf("id=%d rcode=%d answers=%d authorities=%d additionals=%d\n",
		p.Header.ID,
		p.Header.ResponseCode,
		len(answers),
		len(p.Authorities()),
		len(p.Additionals()),
	)

	rows := make([]string, 0, len(answers))
	for _, rr := range answers {
		rows = append(rows, formatRR(rr))
	}
	sort.Strings(rows)
	for _, s := range rows {
		fmt.Println(s)
	}
}

func queryUDP(server, name string, qtype uint16, timeout time.Duration, recvSize int) ([]byte, error) {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, err
	}
	c, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	reqBytes, err := buildQuery(name, qtype)
	if err != nil {
		return nil, err
	}
	_ = c.SetDeadline(time.Now().Add(timeout))
	if _, err := c.Write(reqBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, recvSize)
	n, err := c.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func buildQuery(name string, qtype uint16) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("name required")
	}
	id := uint16(time.Now().UnixNano())
	if id == 0 {
		id = 0x1234
	}
	b := dns.Query(id)
	b.AddQuestion(dns.QuestionOwned{
		Name:   dns.NewDomainName(name),
		QType:  dns.QTypeFromUint16(qtype),
		QClass: dns.QClassFromUint16(dns.ClassIN.Code()),
	})

	buf := dns.NewBuffer().WithMaxLen(65533)
	b.BuildInto(buf)
	return append([]byte(nil), buf.Bytes()...), nil
}

func formatRR(rr dns.Resource) string {
	name := rr.Name.String()
	switch rr.Type {
	case dns.TypeA:
		if len(rr.Data) == 4 {
			return fmt.Sprintf("%s %d IN A %d.%d.%d.%d", name, rr.TTL, rr.Data[0], rr.Data[1], rr.Data[2], rr.Data[3])
		}
	case dns.TypeAAAA:
		if len(rr.Data) == 16 {
			ip := net.IP(rr.Data)
			return fmt.Sprintf("%s %d IN AAAA %s", name, rr.TTL, ip.String())
		}
	case dns.TypeCNAME:
		if target, ok := decodeUncompressedName(rr.Data); ok {
			return fmt.Sprintf("%s %d IN CNAME %s", name, rr.TTL, target)
		}
	}
	return fmt.Sprintf("%s %d IN %s (unparsed)", name, rr.TTL, rr.Type.String())
}

// decodeUncompressedName renders rdata as a dotted name when it contains no
// compression pointer; rdata's offsets are relative to the whole message, so
// a pointer here cannot be resolved from data alone.
func decodeUncompressedName(data []byte) (string, bool) {
	var labels []string
	i := 0
	for {
		if i >= len(data) {
			return "", false
		}
		l := data[i]
		if l == 0 {
			break
		}
		if l&0xC0 != 0 {
			return "", false
		}
		i++
		if i+int(l) > len(data) {
			return "", false
		}
		labels = append(labels, string(data[i:i+int(l)]))
		i += int(l)
	}
	if len(labels) == 0 {
		return ".", true
	}
	return strings.Join(labels, ".") + ".", true
}
