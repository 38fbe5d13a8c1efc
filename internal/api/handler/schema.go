package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Message string `json:"message"`
}

// --- Request / Response types ---

type signUpRequest struct {
	Email       string   `json:"email"       validate:"required,email,max=254"`
	Password    string   `json:"password"    validate:"required,password,max=72"`
	Name        string   `json:"name"        validate:"max=100"`
	LastName    string   `json:"lastName"    validate:"max=100"`
	PhoneNumber string   `json:"phoneNumber" validate:"omitempty,phone"`
	Birthdate   string   `json:"birthdate"   validate:"omitempty,birthdate"`
	ProfileURL  string   `json:"profileUrl"  validate:"omitempty,url,max=2048"`
	Address     string   `json:"address"     validate:"max=255"`
	Roles       []string `json:"roles"       validate:"omitempty,max=10,dive,required,max=50"`
}

type signInRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signInResponse struct {
	Token string `json:"token"`
}
