package tracing

// Span names and attribute keys used by the hub.
const (
	SpanLoad           = "hub.Load"
	SpanLoadTable      = "hub.LoadTable"
	SpanAfterLoadAll   = "hub.ProcessAfterLoadAll"
	AttrSessionID      = "confhub.session_id"
	AttrDir            = "confhub.dir"
	AttrFormat         = "confhub.format"
	AttrTable          = "confhub.table"
	AttrPath           = "confhub.path"
	AttrTables         = "confhub.tables"
	AttrFailed         = "confhub.failed"
	defaultServiceName = "confhub"
)
