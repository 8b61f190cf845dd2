package validator

func init() {
	validate.RegisterValidation("base64_image", validateBase64Image)
	validate.RegisterValidation("image_format", validateImageFormat)
}

type Validator struct{}

func (v *Validator) ValidateStruct(payload interface{}) *[]error {
	return validateStruct(payload)
}

func (v *Validator) ValidateValue(value any, rules string) error {
	return validateField(value, rules)
}

var ValidatorInstance = Validator{}
