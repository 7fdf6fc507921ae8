package runtime

type Flow string

const (
	FlowLocal    Flow = "local"
	FlowDryRun   Flow = "dry-run"
	FlowDispatch Flow = "dispatch"
	FlowTag      Flow = "tag"
	FlowEvent    Flow = "event"
)

func ResolveFlow(ctx Context) Flow {
	switch {
	case ctx.DryRun:
		return FlowDryRun
	case !ctx.CI:
		return FlowLocal
	case ctx.IsManual:
		return FlowDispatch
	case ctx.IsTag:
		return FlowTag
	default:
		return FlowEvent
	}
}
