package dcad

import (
	"dcad-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("dcad.lib.scrapers.dcad")
