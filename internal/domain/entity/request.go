package entity

import "time"

// RequestStatus is the decision status of a representative request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsValid returns true if the status is a known request status
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true once the request has been decided
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// String returns the string representation of the status
func (s RequestStatus) String() string {
	return string(s)
}

// RepresentativeRequest asks an admin to make a student the representative of a club
type RepresentativeRequest struct {
	ID          string        `json:"id"`
	UserID      string        `json:"userId"`
	UserName    string        `json:"userName"`
	ClubID      string        `json:"clubId"`
	ClubName    string        `json:"clubName"`
	Status      RequestStatus `json:"status"`
	RequestDate time.Time     `json:"requestDate"`
}
