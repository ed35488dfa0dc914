package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/hallam/sentinel/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"volts": func(v float64) string {
		return fmt.Sprintf("%.2fV", v)
	},
	"amps": func(v float64) string {
		return fmt.Sprintf("%.3fA", v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Sentinel</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.batt-excellent { color: green; font-weight: bold; }
.batt-good { color: green; }
.batt-low { color: orange; font-weight: bold; }
.batt-critical { color: red; font-weight: bold; }
</style>
</head>
<body>
<h1>Sentinel</h1>

<h2>State</h2>
<table>
<tr><th>Mode</th><td>{{stateOrUnknown .Mode}}</td></tr>
<tr><th>Monitoring</th><td>{{if .Monitoring}}yes{{else}}no{{end}}</td></tr>
<tr><th>Motion</th><td class="{{if eq (stateOrUnknown (printf "%s" .Motion.State)) "ACTIVE"}}on{{else if eq (stateOrUnknown (printf "%s" .Motion.State)) "CLEAR"}}off{{else}}unknown{{end}}">{{stateOrUnknown (printf "%s" .Motion.State)}}</td></tr>
<tr><th>Triggers</th><td>{{.Motion.Triggers}}</td></tr>
</table>

<h2>Battery</h2>
<table>
<tr><th>Status</th><td class="{{if eq (printf "%s" .Power.Battery) "EXCELLENT"}}batt-excellent{{else if eq (printf "%s" .Power.Battery) "GOOD"}}batt-good{{else if eq (printf "%s" .Power.Battery) "LOW"}}batt-low{{else if eq (printf "%s" .Power.Battery) "CRITICAL"}}batt-critical{{else}}unknown{{end}}">{{.Power.Battery}}</td></tr>
<tr><th>Voltage</th><td>{{volts .Power.Voltage}}</td></tr>
<tr><th>Current</th><td>{{amps .Power.Current}}{{if .Power.Charging}} (charging){{end}}</td></tr>
<tr><th>Charge</th><td>{{pct .Power.Percentage}}</td></tr>
{{if .Power.HasRuntime}}<tr><th>Runtime</th><td>{{printf "%.0f" .Power.RuntimeMin}} min</td></tr>{{end}}
<tr><th>Sensor</th><td class="{{if .Power.Connected}}connected{{else}}disconnected{{end}}">{{if .Power.Connected}}connected{{else}}disconnected{{end}}</td></tr>
</table>

<h2>Relays</h2>
<table>
{{range .Relays}}<tr><th>Channel {{.Channel}}</th><td class="{{if .On}}on{{else}}off{{end}}">{{if .On}}ON{{else}}OFF{{end}}</td></tr>
{{else}}<tr><td>none configured</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Motion poll</th><td>{{.Config.MotionIntervalMs}}ms</td></tr>
<tr><th>Power poll</th><td>{{.Config.PowerIntervalMs}}ms</td></tr>
<tr><th>Cooldown</th><td>{{.Config.CooldownS}}s</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/status.json">status</a> &middot; <a href="/history.json">history</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
