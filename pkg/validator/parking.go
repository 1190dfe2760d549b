package validator

import (
	"errors"
	"regexp"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

var (
	// ErrEmptyVehicle indicates the vehicle number is blank
	ErrEmptyVehicle = errors.New("vehicle number cannot be empty")

	// ErrVehicleTooLong indicates the vehicle number exceeds the column size
	ErrVehicleTooLong = errors.New("vehicle number must be at most 20 characters")

	// ErrVehicleFormat indicates the vehicle number contains invalid characters
	ErrVehicleFormat = errors.New("vehicle number can only contain letters, digits, spaces and dashes")

	// ErrInvalidPinCode indicates the pin code is not 4 to 10 digits
	ErrInvalidPinCode = errors.New("pin code must be 4 to 10 digits")
)

const maxVehicleLength = 20

var (
	vehicleRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]*$`)
	pinCodeRegex = regexp.MustCompile(`^\d{4,10}$`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// ParkingValidator validates user supplied parking fields
type ParkingValidator struct{}

// NewParkingValidator creates a new parking validator instance
func NewParkingValidator() *ParkingValidator {
	return &ParkingValidator{}
}

// ValidateVehicleNumber returns the sanitized vehicle number.
// Case is preserved because vehicle search is case-sensitive.
func (v *ParkingValidator) ValidateVehicleNumber(vehicle string) (string, error) {
	sanitized := v.SanitizeVehicleNumber(vehicle)
	if sanitized == "" {
		return "", ErrEmptyVehicle
	}

	if len(sanitized) > maxVehicleLength {
		return "", ErrVehicleTooLong
	}

	if !vehicleRegex.MatchString(sanitized) {
		return "", ErrVehicleFormat
	}

	return sanitized, nil
}

// SanitizeVehicleNumber trims the input and collapses inner whitespace
func (v *ParkingValidator) SanitizeVehicleNumber(vehicle string) string {
	return spaceRun.ReplaceAllString(strings.TrimSpace(vehicle), " ")
}

// ValidatePinCode checks a postal pin code
func (v *ParkingValidator) ValidatePinCode(pinCode string) (string, error) {
	sanitized := strings.TrimSpace(pinCode)
	if !pinCodeRegex.MatchString(sanitized) {
		return "", ErrInvalidPinCode
	}
	return sanitized, nil
}

// RegisterBindings installs the "vehicle" and "pincode" tags on a
// go-playground validator, typically gin's binding engine.
func (v *ParkingValidator) RegisterBindings(engine *playground.Validate) error {
	if err := engine.RegisterValidation("vehicle", func(fl playground.FieldLevel) bool {
		_, err := v.ValidateVehicleNumber(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}

	return engine.RegisterValidation("pincode", func(fl playground.FieldLevel) bool {
		_, err := v.ValidatePinCode(fl.Field().String())
		return err == nil
	})
}
