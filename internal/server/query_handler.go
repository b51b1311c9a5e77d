package server

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jroosing/hydradns/internal/cache"
	"github.com/jroosing/hydradns/internal/dns"
	"github.com/jroosing/hydradns/internal/filtering"
)

// maxResponseSize is the wire size cap for a UDP response; a message that
// does not fit is truncated at build time with TC set, per RFC 1035.
const maxResponseSize = 512

// QueryHandler implements server.Handler: it parses one inbound datagram,
// answers every question it can from the cache, forwards the rest upstream,
// and serializes a response.
type QueryHandler struct {
	Logger   *slog.Logger
	Cache    *cache.Cache
	Upstream *net.UDPAddr
	Stats    *DNSStats
	// Policy, if set, is consulted once per question before any cache lookup
	// or forwarding; a blocked question gets no answer, and a packet whose
	// every question is blocked gets NXDOMAIN.
	Policy *filtering.PolicyEngine
}

// Handle implements server.Handler.
func (h *QueryHandler) Handle(ctx context.Context, payload []byte, reply func([]byte)) {
	start := time.Now()
	if h.Stats != nil {
		h.Stats.RecordQuery("udp")
		defer func() { h.Stats.RecordLatency(time.Since(start).Nanoseconds()) }()
	}

	packet, err := dns.ParsePacket(payload)
	if err != nil {
		if h.Stats != nil {
			h.Stats.RecordError()
		}
		reply(h.serialize(dns.RespondTo(dns.NewHeaderView(payload), dns.RCodeFormatError)))
		return
	}

	if packet.Header.Type != dns.PacketTypeQuery {
		return // never answer a response with a response
	}
	if packet.Header.Opcode != dns.OpcodeQuery {
		reply(h.serialize(dns.Respond(packet, dns.RCodeNotImplemented)))
		return
	}

	builder := dns.Respond(packet, dns.RCodeNoError)

	var toForward []dns.QuestionOwned
	answered := 0
	blocked := false
	for _, q := range packet.Questions() {
		owned := q.ToOwned()
		builder.AddQuestion(owned)

		if h.Policy != nil {
			domain := strings.TrimSuffix(owned.Name.String(), ".")
			if result := h.Policy.Evaluate(domain); result.Action == filtering.ActionBlock {
				blocked = true
				continue
			}
		}

		hits := h.Cache.Lookup(owned.Name, typeFromQType(owned.QType))
		if len(hits) > 0 {
			for _, data := range hits {
				builder.AddAnswer(owned.Name, data)
				answered++
			}
			continue
		}
		toForward = append(toForward, owned)
	}

	if blocked && answered == 0 && len(toForward) == 0 {
		if h.Stats != nil {
			h.Stats.RecordNXDOMAIN()
		}
		reply(h.serialize(dns.Respond(packet, dns.RCodeNameError)))
		return
	}

	if len(toForward) > 0 && h.Upstream != nil {
		fwd := &Forwarder{Upstream: h.Upstream}
		sub := dns.Query(packet.Header.ID)
		if err := ResolveBatch(ctx, fwd, packet.Header.ID, toForward, sub); err != nil {
			code := dns.RCodeServerFailure
			if err == ErrForwardIO {
				code = dns.RCodeRefused
			}
			if h.Stats != nil {
				h.Stats.RecordError()
			}
			reply(h.serialize(dns.Respond(packet, code)))
			return
		}
		fwdAnswers := sub.Answers()
		for _, a := range fwdAnswers {
			builder.AddAnswer(a.Name, a.Data)
			answered++
		}
		h.cacheForwardedAnswers(ctx, fwdAnswers)
	}

	if answered == 0 && h.Stats != nil {
		h.Stats.RecordNXDOMAIN()
	}

	reply(h.serialize(builder))
}

func (h *QueryHandler) serialize(b *dns.Builder) []byte {
	buf := dns.NewBuffer().WithMaxLen(maxResponseSize)
	b.BuildInto(buf)
	return append([]byte(nil), buf.Bytes()...)
}

// cacheForwardedAnswers publishes freshly forwarded answers so subsequent
// queries for the same name are served from the cache without another
// upstream round trip.
func (h *QueryHandler) cacheForwardedAnswers(ctx context.Context, answers []dns.BuiltAnswer) {
	if len(answers) == 0 {
		return
	}
	bulk := h.Cache.Bulk()
	for _, a := range answers {
		bulk.Insert(a.Name, a.Data)
	}
	if err := bulk.Publish(ctx); err != nil && h.Logger != nil {
		h.Logger.Warn("failed to cache forwarded answers", "err", err)
	}
}

func typeFromQType(qt dns.QType) dns.Type {
	if t, ok := qt.AsType(); ok {
		return t
	}
	return dns.UnknownType(qt.Code())
}
