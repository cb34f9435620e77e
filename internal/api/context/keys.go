package context

type Key string

const (
	Claims     Key = "claims"
	Credential Key = "credential"
	Params     Key = "params"
)
