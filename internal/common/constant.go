package common

// ClientIDHeaderName carries the optional installation id used for the
// server-side monthly quota.
const ClientIDHeaderName = "X-Client-ID"

// TierHeaderName lets clients send their tier on requests whose body has no
// tier field.
const TierHeaderName = "X-Subscription-Tier"
