package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/smartpark/parking-backend/pkg/validator"
)

// RegisterValidators installs the parking binding tags on gin's validator engine
func RegisterValidators() error {
	engine, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return validator.NewParkingValidator().RegisterBindings(engine)
}
