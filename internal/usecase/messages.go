package usecase

import "fmt"

func StartedMessage(symbol string) string {
	return fmt.Sprintf("Service %s has started.", symbol)
}

func AlreadyRunningMessage(symbol string) string {
	return fmt.Sprintf("Service %s is already running.", symbol)
}

func NotRunningMessage(symbol string) string {
	return fmt.Sprintf("Service %s is not running.", symbol)
}

func StoppedMessage(symbol string) string {
	return fmt.Sprintf("Service %s has stopped.", symbol)
}

func NoDataMessage(symbol string) string {
	return fmt.Sprintf("No data for %s.", symbol)
}

func ProcessingErrorMessage(symbol string, err error) string {
	return fmt.Sprintf("Error processing data for %s: %v", symbol, err)
}
