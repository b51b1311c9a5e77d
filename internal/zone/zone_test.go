package zone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jroosing/hydradns/internal/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZoneBasic(t *testing.T) {
	z, err := ParseText("$ORIGIN example.com.\n$TTL 3600\n@ IN A 1.2.3.4\n")
	require.NoError(t, err)
	assert.Equal(t, "example.com", z.Origin)

	rrs := z.Lookup("example.com", dns.TypeA.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1)
}

func TestParseZoneMultipleRecords(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@    IN  A     192.0.2.1
@    IN  A     192.0.2.2
www  IN  A     192.0.2.3
mail IN  MX    10 mail.example.com.
`)
	require.NoError(t, err)

	rrs := z.Lookup("example.com", dns.TypeA.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 2, "expected 2 A records at apex")

	rrs = z.Lookup("www.example.com", dns.TypeA.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 A record for www")

	rrs = z.Lookup("mail.example.com", dns.TypeMX.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 MX record")
}

func TestParseZoneWithCNAME(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@    IN  A      192.0.2.1
www  IN  CNAME  @
`)
	require.NoError(t, err)

	rrs := z.Lookup("www.example.com", dns.TypeCNAME.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 CNAME record")
}

func TestParseZoneWithNS(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@  IN  NS  ns1.example.com.
@  IN  NS  ns2.example.com.
`)
	require.NoError(t, err)

	rrs := z.Lookup("example.com", dns.TypeNS.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 2, "expected 2 NS records")
}

func TestParseZoneSOAIsIgnored(t *testing.T) {
	// SOA is not a cacheable leaf record in this resolver (no SOA-derived
	// negative caching); the line parses but produces no record.
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@  IN  SOA  ns1.example.com. admin.example.com. 2024010101 3600 900 604800 86400
`)
	require.NoError(t, err)
	assert.Len(t, z.Records, 0)
}

func TestParseZoneWithAAAA(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@  IN  AAAA  2001:db8::1
`)
	require.NoError(t, err)

	rrs := z.Lookup("example.com", dns.TypeAAAA.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 AAAA record")
}

func TestParseZoneWithTXT(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@  IN  TXT  "v=spf1 include:_spf.example.com ~all"
`)
	require.NoError(t, err)

	rrs := z.Lookup("example.com", dns.TypeTXT.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 TXT record")
}

func TestZoneContainsName(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@  IN  A  192.0.2.1
`)
	require.NoError(t, err)

	assert.True(t, z.ContainsName("example.com"))
	assert.True(t, z.ContainsName("www.example.com"))
	assert.False(t, z.ContainsName("other.net"))
}

func TestZoneNameExists(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@    IN  A  192.0.2.1
www  IN  A  192.0.2.2
`)
	require.NoError(t, err)

	assert.True(t, z.NameExists("example.com", dns.ClassIN.Code()))
	assert.True(t, z.NameExists("www.example.com", dns.ClassIN.Code()))
	assert.False(t, z.NameExists("nonexistent.example.com", dns.ClassIN.Code()))
}

func TestLoadFile(t *testing.T) {
	content := `
$ORIGIN test.local.
$TTL 300
@  IN  A  10.0.0.1
`
	dir := t.TempDir()
	path := filepath.Join(dir, "test.zone")
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err, "failed to write test file")

	z, err := LoadFile(path)
	require.NoError(t, err, "LoadFile failed")
	assert.Equal(t, "test.local", z.Origin)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/path/to/zone.file")
	assert.Error(t, err, "expected error for nonexistent file")
}

func TestParseZoneNoOrigin(t *testing.T) {
	_, err := ParseText(`
$TTL 3600
@  IN  A  192.0.2.1
`)
	assert.Error(t, err, "expected error for zone without origin")
}

func TestParseZoneComments(t *testing.T) {
	z, err := ParseText(`
; This is a comment
$ORIGIN example.com.
$TTL 3600
@  IN  A  192.0.2.1  ; inline comment
`)
	require.NoError(t, err)

	rrs := z.Lookup("example.com", dns.TypeA.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 record")
}

func TestParseZoneRelativeNames(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
www     IN  A  192.0.2.1
mail    IN  A  192.0.2.2
`)
	require.NoError(t, err)

	rrs := z.Lookup("www.example.com", dns.TypeA.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 record for www")

	rrs = z.Lookup("mail.example.com", dns.TypeA.Code(), dns.ClassIN.Code())
	assert.Len(t, rrs, 1, "expected 1 record for mail")
}

func TestZoneToCacheRecords(t *testing.T) {
	z, err := ParseText(`
$ORIGIN example.com.
$TTL 3600
@    IN  A     192.0.2.1
www  IN  CNAME @
mail IN  MX    10 mx.example.com.
@    IN  TXT   "hello"
`)
	require.NoError(t, err)

	names, datas, err := z.ToCacheRecords()
	require.NoError(t, err)
	require.Len(t, names, 4)
	require.Len(t, datas, 4)

	found := false
	for i, n := range names {
		if n.String() == "example.com." && datas[i].Type() == dns.TypeA {
			found = true
		}
	}
	assert.True(t, found, "expected an A record for example.com.")
}

func TestDiscoverZoneFiles(t *testing.T) {
	dir := t.TempDir()

	err := os.WriteFile(filepath.Join(dir, "example.zone"), []byte("test"), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "test.zone"), []byte("test"), 0644)
	require.NoError(t, err)

	files, err := DiscoverZoneFiles(dir)
	require.NoError(t, err, "DiscoverZoneFiles failed")

	assert.GreaterOrEqual(t, len(files), 2, "expected at least 2 files")
}

func TestDiscoverZoneFilesNonexistentDir(t *testing.T) {
	files, err := DiscoverZoneFiles("/nonexistent/directory")
	assert.Error(t, err, "expected error for nonexistent directory")
	assert.Empty(t, files, "expected 0 files")
}
