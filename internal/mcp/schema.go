package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Input schemas are declared by hand because measurement values are decimals
// that clients may send either as JSON numbers or as strings.

func objectSchema(description string, required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: description,
		Properties:  props,
		Required:    required,
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func integerProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

func decimalProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"number", "string"}, Description: description}
}

func labSchema() *jsonschema.Schema {
	return objectSchema("One point-of-care lab result", []string{"analyte", "value"}, map[string]*jsonschema.Schema{
		"analyte": {
			Type:        "string",
			Description: "Analyte tag",
			Enum:        []any{"gdp", "gds", "kol_total", "hdl", "ldl", "trigliserida", "asam_urat"},
		},
		"value": decimalProp("Measured value"),
		"unit":  stringProp("mg/dL (default) or mmol/L"),
	})
}

// snapshotSchema describes the measurement snapshot. Nested objects are left
// open; the engine validates their contents.
func snapshotSchema() *jsonschema.Schema {
	return objectSchema("Measurements of one person at one visit", nil, map[string]*jsonschema.Schema{
		"age_years":  integerProp("Age in whole years"),
		"age_months": integerProp("Age in months, for children under five"),
		"sex":        stringProp("male or female; the form codes L/P and laki-laki/perempuan are accepted"),
		"birth_date": stringProp("Date of birth as RFC 3339; derives the ages when they are not given"),
		"blood_pressure": {
			Type:        "array",
			Description: "One or two readings in mmHg",
			Items: objectSchema("", []string{"systolic", "diastolic"}, map[string]*jsonschema.Schema{
				"systolic":  integerProp("Systolic mmHg"),
				"diastolic": integerProp("Diastolic mmHg"),
			}),
		},
		"pulse":         integerProp("Pulse per minute"),
		"temperature_c": decimalProp("Body temperature in Celsius"),
		"spo2":          integerProp("Oxygen saturation percent"),
		"height_cm":     decimalProp("Height in cm"),
		"weight_kg":     decimalProp("Weight in kg"),
		"bmi":           decimalProp("BMI, used when height or weight is absent"),
		"waist_cm":      decimalProp("Waist circumference in cm"),
		"labs":          {Type: "array", Items: labSchema()},
		"lifestyle":     {Type: "object", Description: "PTM lifestyle answers"},
		"smoker":        {Type: "boolean"},
		"diabetic":      {Type: "boolean"},
		"pregnancy":     {Type: "object", Description: "Antenatal examination fields"},
	})
}
