package provider

// Observer receives job lifecycle events. Calls are made with the record
// table locked, so implementations must not call back into the provider.
type Observer interface {
	JobSubmitted(rec JobRecord)
	JobRejected(label string)
	JobTransitioned(rec JobRecord, from Status)
}

type nopObserver struct{}

func (nopObserver) JobSubmitted(JobRecord)            {}
func (nopObserver) JobRejected(string)                {}
func (nopObserver) JobTransitioned(JobRecord, Status) {}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) JobSubmitted(rec JobRecord) {
	for _, ob := range o {
		ob.JobSubmitted(rec)
	}
}

func (o Observers) JobRejected(label string) {
	for _, ob := range o {
		ob.JobRejected(label)
	}
}

func (o Observers) JobTransitioned(rec JobRecord, from Status) {
	for _, ob := range o {
		ob.JobTransitioned(rec, from)
	}
}
