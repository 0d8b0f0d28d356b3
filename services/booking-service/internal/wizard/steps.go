package wizard

// Step is one screen of the booking wizard.
type Step string

const (
	StepBusiness         Step = "business"
	StepLocation         Step = "location"
	StepService          Step = "service"
	StepEmployee         Step = "employee"
	StepEmployeeBusiness Step = "employeeBusiness"
	StepDateTime         Step = "dateTime"
	StepConfirmation     Step = "confirmation"
	StepSuccess          Step = "success"
)

// Steps is the fixed order of the wizard.
var Steps = []Step{
	StepBusiness,
	StepLocation,
	StepService,
	StepEmployee,
	StepEmployeeBusiness,
	StepDateTime,
	StepConfirmation,
	StepSuccess,
}

func (s Step) Index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

func (s Step) Valid() bool { return s.Index() >= 0 }

// Field names a selectable part of the wizard state.
type Field string

const (
	FieldBusiness         Field = "business"
	FieldLocation         Field = "location"
	FieldService          Field = "service"
	FieldEmployee         Field = "employee"
	FieldEmployeeBusiness Field = "employeeBusiness"
	FieldDate             Field = "date"
	FieldStartTime        Field = "startTime"
	FieldNotes            Field = "notes"
)

// Step is the screen on which the field is chosen.
func (f Field) Step() Step {
	switch f {
	case FieldBusiness:
		return StepBusiness
	case FieldLocation:
		return StepLocation
	case FieldService:
		return StepService
	case FieldEmployee:
		return StepEmployee
	case FieldEmployeeBusiness:
		return StepEmployeeBusiness
	case FieldDate, FieldStartTime:
		return StepDateTime
	default:
		return StepConfirmation
	}
}
