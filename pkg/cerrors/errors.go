package cerrors

import "fmt"

type Generic struct {
	Phase  string
	Reason string
}

func (e Generic) Error() string {
	if e.Phase == "" {
		return e.Reason
	}
	return fmt.Sprintf("[%s]: %s", e.Phase, e.Reason)
}

func (e Generic) UserFriendly() bool {
	return true
}

func (e Generic) ErrorType() ErrorType {
	return ErrorTypeGeneric
}

type SafetyCheck struct {
	Check  string
	Reason string
}

func (e SafetyCheck) Error() string {
	if e.Check == "" {
		return fmt.Sprintf("safety validation failed, %s", e.Reason)
	}
	return fmt.Sprintf("safety check '%s' failed, %s", e.Check, e.Reason)
}

func (e SafetyCheck) UserFriendly() bool {
	return true
}

func (e SafetyCheck) ErrorType() ErrorType {
	return ErrorTypeSafetyCheck
}

type FaultInjection struct {
	Fault  string
	Target string
	Reason string
}

func (e FaultInjection) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("failed to inject '%s' fault, %s", e.Fault, e.Reason)
	}
	return fmt.Sprintf("failed to inject '%s' fault on '%s', %s", e.Fault, e.Target, e.Reason)
}

func (e FaultInjection) UserFriendly() bool {
	return true
}

func (e FaultInjection) ErrorType() ErrorType {
	return ErrorTypeFaultInjection
}

type BaselineCRUD struct {
	Operation string
	Target    string
	Reason    string
}

func (e BaselineCRUD) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("failed to %s baseline, %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("failed to %s baseline '%s', %s", e.Operation, e.Target, e.Reason)
}

func (e BaselineCRUD) UserFriendly() bool {
	return true
}

func (e BaselineCRUD) ErrorType() ErrorType {
	return ErrorTypeBaselineCRUD
}

type AlertDispatch struct {
	Channel string
	Reason  string
}

func (e AlertDispatch) Error() string {
	return fmt.Sprintf("failed to dispatch alert via channel '%s', %s", e.Channel, e.Reason)
}

func (e AlertDispatch) UserFriendly() bool {
	return true
}

func (e AlertDispatch) ErrorType() ErrorType {
	return ErrorTypeAlertDispatch
}

type Timeout struct {
	Operation string
}

func (e Timeout) Error() string {
	return fmt.Sprintf("'%s' did not complete within its deadline", e.Operation)
}

func (e Timeout) UserFriendly() bool {
	return true
}

func (e Timeout) ErrorType() ErrorType {
	return ErrorTypeTimeout
}
