package user

// NewUser is what the store inserts; the password is already hashed.
type NewUser struct {
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	Avatar       string
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=80"`
	Username *string `json:"username" binding:"omitempty,min=3,max=40,alphanum"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Avatar   *string `json:"avatar" binding:"omitempty,max=500"`
	Role     *string `json:"role" binding:"omitempty,oneof=user admin"`
	Active   *bool   `json:"active"`
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Username == nil && p.Email == nil && p.Avatar == nil && p.Role == nil && p.Active == nil
}

type SignUpRequest struct {
	Name            string `json:"name" binding:"required,max=80"`
	Username        string `json:"username" binding:"required,min=3,max=40,alphanum"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// UpdateMeRequest is limited to profile fields. Password fields are bound
// only so the handler can reject them.
type UpdateMeRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=80"`
	Username        *string `json:"username" binding:"omitempty,min=3,max=40,alphanum"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Avatar          *string `json:"avatar" binding:"omitempty,max=500"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
}

func (r UpdateMeRequest) Patch() Patch {
	return Patch{Name: r.Name, Username: r.Username, Email: r.Email, Avatar: r.Avatar}
}
