package relayx

// Stage is where a request stands in the trust chain. It only ever moves
// forward, or into one of the two rejection terminals.
type Stage int

const (
	Unauthenticated Stage = iota
	EdgeAuthenticated
	TrustRelayed
	BackendAuthenticated
	Rejected401
	Rejected403
)

func (s Stage) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case EdgeAuthenticated:
		return "edge_authenticated"
	case TrustRelayed:
		return "trust_relayed"
	case BackendAuthenticated:
		return "backend_authenticated"
	case Rejected401:
		return "rejected_401"
	case Rejected403:
		return "rejected_403"
	default:
		return "unknown"
	}
}
