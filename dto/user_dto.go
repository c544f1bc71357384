package dto

type UpdateProfileDTO struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

// AdminUpdateUserDTO additionally allows changing the role.
type AdminUpdateUserDTO struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	Role     *string `json:"role"`
}
