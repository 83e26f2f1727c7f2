package dto

// UpdateJointSubjectRequest toggles whether a subject may be taught jointly.
type UpdateJointSubjectRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// JointSetRequest creates or replaces a joint class group set.
type JointSetRequest struct {
	Name          string  `json:"name" validate:"required,max=50"`
	ClassGroupIDs []int64 `json:"classGroupIds" validate:"required,min=1,dive,gt=0"`
	Active        *bool   `json:"active"`
}
