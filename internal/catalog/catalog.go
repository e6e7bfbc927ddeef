// Package catalog defines the static configuration for the two Chicago trip
// datasets: resource identifiers, Socrata dataset ids, the trip-type
// taxonomy and the TNP shared-ride classification predicates.
package catalog

import (
	"fmt"
	"time"
)

type Resource string

const (
	ResourceTaxi Resource = "taxi"
	ResourceTNP  Resource = "tnp"
)

// SharedStatus partitions TNP trips by shared-ride outcome. SharedNone means
// no partition: the query covers all TNP trips.
type SharedStatus string

const (
	SharedNone             SharedStatus = ""
	SharedNotShared        SharedStatus = "not_shared"
	SharedUnmatchedRequest SharedStatus = "unmatched_share_request"
	SharedMatched          SharedStatus = "shared"
)

var datasetIDs = map[Resource]string{
	ResourceTaxi: "wrvz-psew",
	ResourceTNP:  "m6dm-c72p",
}

// sharedConditions are the mutually exclusive predicates behind the three
// shared-ride partitions, rendered verbatim into TNP query text.
var sharedConditions = map[SharedStatus]string{
	SharedNotShared:        "shared_trip_authorized = false",
	SharedUnmatchedRequest: "shared_trip_authorized = true AND trips_pooled = 1",
	SharedMatched:          "shared_trip_authorized = true AND trips_pooled > 1",
}

var (
	TaxiTripTypes = []string{"taxi"}
	TNPTripTypes  = []string{"tnp", "tnp_not_shared", "tnp_unmatched_share_request", "tnp_shared"}
)

var (
	// DashboardStartDate is the first month the dashboard projection reads.
	DashboardStartDate = time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC)

	taxiStartMonth = time.Date(2013, time.January, 1, 0, 0, 0, 0, time.UTC)
	tnpStartMonth  = time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC)
)

// Resources returns both resources in backfill order.
func Resources() []Resource {
	return []Resource{ResourceTaxi, ResourceTNP}
}

// ParseResource validates a resource identifier supplied by configuration or
// a CLI flag. Unknown identifiers are a configuration error and fail here,
// before any query runs.
func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case ResourceTaxi:
		return ResourceTaxi, nil
	case ResourceTNP:
		return ResourceTNP, nil
	}
	return "", fmt.Errorf("unknown resource %q", s)
}

// DatasetID returns the Socrata dataset id for a resource.
func (r Resource) DatasetID() string {
	id, ok := datasetIDs[r]
	if !ok {
		panic(fmt.Sprintf("no dataset id for resource %q", r))
	}
	return id
}

// TripTypes returns the persisted trip_type values belonging to a resource.
func (r Resource) TripTypes() []string {
	switch r {
	case ResourceTaxi:
		return TaxiTripTypes
	case ResourceTNP:
		return TNPTripTypes
	}
	panic(fmt.Sprintf("no trip types for resource %q", r))
}

// StartMonth returns the first month with published data for a resource,
// used as the backfill origin.
func (r Resource) StartMonth() time.Time {
	switch r {
	case ResourceTaxi:
		return taxiStartMonth
	case ResourceTNP:
		return tnpStartMonth
	}
	panic(fmt.Sprintf("no start month for resource %q", r))
}

// SharedStatuses returns the four TNP query partitions: the unpartitioned
// aggregate first, then the three mutually exclusive shared-ride partitions.
func SharedStatuses() []SharedStatus {
	return []SharedStatus{SharedNone, SharedNotShared, SharedUnmatchedRequest, SharedMatched}
}

// Condition returns the predicate text for a shared-ride partition, or ok
// false for SharedNone.
func (s SharedStatus) Condition() (string, bool) {
	cond, ok := sharedConditions[s]
	return cond, ok
}

// TripType derives the persisted trip_type for a resource plus optional
// shared-ride partition, e.g. "tnp_not_shared".
func TripType(r Resource, s SharedStatus) string {
	if s == SharedNone {
		return string(r)
	}
	return string(r) + "_" + string(s)
}

// ValidTripType reports whether t belongs to the persisted taxonomy.
func ValidTripType(t string) bool {
	for _, known := range TaxiTripTypes {
		if t == known {
			return true
		}
	}
	for _, known := range TNPTripTypes {
		if t == known {
			return true
		}
	}
	return false
}
