// Package keypool rotates API credentials for one provider.
//
// A Pool picks the least-used credential that still has enough quota for a
// request, records provider-reported usage after each call, and distinguishes
// "nothing registered" (services.ErrNoCredentials) from "everything spent"
// (services.ErrCredentialExhausted). Quota accounting is best effort: two
// concurrent callers may both pick the same credential from the same snapshot.
//
// Pools never reset quotas themselves. A Refresher asks the provider for fresh
// figures once a credential's reset time has passed, either on demand or on a
// cron schedule.
package keypool
