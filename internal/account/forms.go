package account

// Field error messages of the account forms.
const (
	MsgResetBarred      = "You cannot reset your password."
	MsgEmailTaken       = "A user is already registered with this e-mail address."
	MsgUsernameTooShort = "Username must be a minimum of %d characters."
	MsgLoginFailed      = "The login and/or password you specified are not correct."
	MsgAccountInactive  = "This account is inactive."
	MsgEmailNotVerified = "Your e-mail address has not been verified yet."
	MsgTooManyAttempts  = "Too many failed login attempts. Try again later."
	MsgWrongOldPassword = "Please type your current password."
	MsgBadResetKey      = "The password reset link was invalid, possibly because it has already been used."
)

type signupUserInput struct {
	Username  string `form:"username" validate:"required,max=150,username"`
	Email     string `form:"email" validate:"required,max=254,email"`
	FirstName string `form:"first_name" validate:"max=150"`
	LastName  string `form:"last_name" validate:"max=150"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

// Administrators sign up without a username but with a full name.
type signupAdministratorInput struct {
	Email     string `form:"email" validate:"required,max=254,email"`
	FirstName string `form:"first_name" validate:"required,max=150"`
	LastName  string `form:"last_name" validate:"required,max=150"`
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

type loginInput struct {
	Login    string `form:"login" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type resetPasswordInput struct {
	Email string `form:"email" validate:"required,email"`
}

type setPasswordInput struct {
	Password1 string `form:"password1" validate:"required"`
	Password2 string `form:"password2" validate:"required,eqfield=Password1"`
}

type changePasswordInput struct {
	OldPassword string `form:"old_password" validate:"required"`
	Password1   string `form:"password1" validate:"required"`
	Password2   string `form:"password2" validate:"required,eqfield=Password1"`
}
