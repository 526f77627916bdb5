package cassthrift

// Errors mapped from the exceptions the API declares. Unavailable and
// timed-out responses are transient and safe for the dispatcher to retry;
// invalid requests map onto cassandra.InvalidRequestError so they are not.

type NotFoundError struct{}

func (NotFoundError) Error() string { return "cassandra: not found" }

type UnavailableError struct{}

func (UnavailableError) Error() string { return "cassandra: not enough live replicas" }

type TimedOutError struct{}

func (TimedOutError) Error() string { return "cassandra: replica did not respond in time" }

type AuthenticationError struct{ Why string }

func (e AuthenticationError) Error() string { return "cassandra: authentication failed: " + e.Why }

type AuthorizationError struct{ Why string }

func (e AuthorizationError) Error() string { return "cassandra: not authorized: " + e.Why }

type SchemaDisagreementError struct{}

func (SchemaDisagreementError) Error() string {
	return "cassandra: schema versions disagree, retry once the cluster converges"
}
