package service

// MetricsRecorder receives the auth gateway's counters.
type MetricsRecorder interface {
	RecordGuardDecision(class, decision string)
	RecordTokenExchange(outcome string)
	RecordSessionRefresh(outcome string)
	RecordRoleSync(direction, outcome string)
}
