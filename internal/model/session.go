package model

// Session is the signed-in identity held by the client. It is all-or-nothing:
// either Token, Role and UserID are all set or none of them is.
type Session struct {
	Token  string
	Role   Role
	UserID int
}

// Valid reports whether every field of the session is present. Zero is a
// valid user id; presence of the id is checked where it is decoded.
func (s Session) Valid() bool {
	return s.Token != "" && s.Role.Valid() && s.UserID >= 0
}

// Empty reports whether no field of the session is present.
func (s Session) Empty() bool {
	return s.Token == "" && s.Role == RoleNone && s.UserID == 0
}

// Credentials is the login or registration form. Email and Role are only
// sent when registering.
type Credentials struct {
	Username string
	Email    string
	Password string
	Role     Role
}
