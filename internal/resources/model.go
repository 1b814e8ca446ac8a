// Package resources tracks bookable equipment and rooms and answers whether
// a resource can absorb another concurrent booking.
package resources

import (
	"github.com/glowdesk/glowdesk-api/internal/schedule"
)

// Resource is a bookable piece of equipment or a room.
type Resource struct {
	CompanyID  string `dynamodbav:"companyId" json:"companyId"`
	ResourceID string `dynamodbav:"resourceId" json:"resourceId"`
	BranchID   string `dynamodbav:"branchId,omitempty" json:"branchId,omitempty"`
	Name       string `dynamodbav:"name" json:"name"`
	// Capacity is how many appointments may hold the resource at once.
	// Zero or negative is normalized to 1 on read.
	Capacity int  `dynamodbav:"capacity" json:"capacity"`
	Active   bool `dynamodbav:"active" json:"active"`
	// Schedule optionally restricts when the resource is usable, in the
	// same shape as a staff schedule. Nil means always usable while the
	// branch is open.
	Schedule  *schedule.Weekly `dynamodbav:"schedule,omitempty" json:"schedule,omitempty"`
	UpdatedAt string           `dynamodbav:"updatedAt" json:"updatedAt"`
}

// EffectiveCapacity normalizes the stored capacity.
func (r *Resource) EffectiveCapacity() int {
	if r.Capacity < 1 {
		return 1
	}
	return r.Capacity
}
