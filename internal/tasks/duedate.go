// nyumbani-crm/internal/tasks/duedate.go
package tasks

import (
	"fmt"
	"time"
)

// DueDates вычисляет дату платежа и эффективную дату (с учетом льготного
// периода) для месяца, в котором лежит ref.
//
// Если dueDay превышает число дней в месяце, дата прижимается к последнему
// дню месяца (31-е число в феврале -> 28/29 февраля). Результат всегда
// в UTC, время обнулено.
func DueDates(ref time.Time, dueDay, graceDays int) (due, effective time.Time, err error) {
	if dueDay < 1 || dueDay > 31 {
		return time.Time{}, time.Time{}, fmt.Errorf("некорректный день платежа: %d", dueDay)
	}
	if graceDays < 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("отрицательный льготный период: %d", graceDays)
	}

	year, month := ref.Year(), ref.Month()
	lastDay := daysInMonth(year, month)
	day := dueDay
	if day > lastDay {
		day = lastDay
	}

	due = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	effective = due.AddDate(0, 0, graceDays)
	return due, effective, nil
}

// BillingPeriod возвращает расчетный месяц в формате "2006-01".
func BillingPeriod(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// NextBillingMonth возвращает первое число месяца, следующего за ref.
// Генератор счетов работает в конце месяца "на опережение" и выставляет
// счета именно на этот месяц.
func NextBillingMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// MonthStart возвращает первое число месяца, в котором лежит ref.
func MonthStart(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DateOf обнуляет время, оставляя календарную дату в UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysInMonth: нулевой день следующего месяца нормализуется
// в последний день текущего.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
