package imaging

import (
	"bytes"
	"image/color"
	"strconv"
	"time"

	"github.com/fogleman/gg"
	"github.com/gatherly/availability/internal/model"
	"golang.org/x/image/font/basicfont"
)

// Константы размеров и отступов
const (
	imageWidth      = 1400
	imageHeight     = 900
	headerHeight    = 100
	leftLabelsWidth = 80
	legendWidth     = 120
	dayPaddingX     = 8
	minBlockHeight  = 8.0
	blockRadius     = 6.0
	shadowOffset    = 3.0
	totalDaysInWeek = 7
	hourPaddingTop  = 2
	hourPaddingBot  = 2
	defaultMinHour  = 0
	defaultMaxHour  = 23
)

// Цветовая схема
var (
	bgColor        = color.RGBA{245, 246, 248, 255}
	textColor      = color.RGBA{80, 85, 90, 220}
	hourLabelColor = color.RGBA{110, 115, 120, 200}
	hourLineColor  = color.NRGBA{150, 150, 150, 255}
	todayBgColor   = color.NRGBA{255, 99, 71, 125}
	evenDayColor   = color.NRGBA{240, 240, 240, 255}
	oddDayColor    = color.NRGBA{220, 220, 220, 255}
	nowLineColor   = color.NRGBA{255, 80, 80, 200}

	availableColor   = color.RGBA{133, 193, 85, 220}
	unavailableColor = color.RGBA{158, 158, 158, 60}
	blockTextColor   = color.RGBA{20, 24, 28, 230}
	blockShadowColor = color.RGBA{0, 0, 0, 20}

	legendItemColor = color.RGBA{70, 74, 78, 220}
)

// hourRange диапазон часов, попадающих на изображение
type hourRange struct {
	start int
	end   int
	total int
}

var dayLabels = map[model.DayName]string{
	model.DayMonday:    "Mon",
	model.DayTuesday:   "Tue",
	model.DayWednesday: "Wed",
	model.DayThursday:  "Thu",
	model.DayFriday:    "Fri",
	model.DaySaturday:  "Sat",
	model.DaySunday:    "Sun",
}

// GenerateWeekImage рисует сетку недельной доступности: колонки по дням,
// зелёные блоки — доступные диапазоны. Диапазон часов подбирается по
// данным, сегодняшний день подсвечивается, если попадает в неделю.
func GenerateWeekImage(week model.WeekKey, days model.WeekData, loc *time.Location) ([]byte, error) {
	today := normalizeToDay(time.Now().In(loc))
	highlightToday := !today.Before(week.DayIn(0, loc)) && today.Before(week.DayIn(0, loc).AddDate(0, 0, 7))

	hours := calculateHourRange(days)

	dc := createCanvas()
	dayWidth := (imageWidth - leftLabelsWidth - legendWidth) / totalDaysInWeek
	dayHeight := imageHeight - headerHeight
	cellHeight := float64(dayHeight) / float64(hours.total)

	drawHeader(dc, week, loc)
	drawHourLabels(dc, hours, cellHeight)

	for offset, name := range model.DayNames {
		date := week.DayIn(offset, loc)
		x := float64(leftLabelsWidth + offset*dayWidth)
		y := float64(headerHeight)

		isToday := highlightToday && isSameDay(date, today)
		day, _ := days.Day(name)

		drawDayBackground(dc, x, y, dayWidth, dayHeight, offset, isToday, day.Available)
		drawDayHeader(dc, name, date, x, y, dayWidth)
		drawHourLines(dc, x, y, dayWidth, hours, cellHeight)
		if day.Available {
			for _, tr := range day.Ranges {
				drawRangeBlock(dc, tr, x, y, dayWidth, hours, cellHeight)
			}
		}
	}

	drawCurrentTimeLine(dc, highlightToday, loc, hours, cellHeight, dayWidth)
	drawLegend(dc, dayWidth)

	return encodeImage(dc)
}

// normalizeToDay нормализует время к началу дня
func normalizeToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// isSameDay проверяет, являются ли две даты одним днем
func isSameDay(date1, date2 time.Time) bool {
	return date1.Year() == date2.Year() &&
		date1.Month() == date2.Month() &&
		date1.Day() == date2.Day()
}

// calculateHourRange определяет диапазон часов для отображения по
// доступным диапазонам недели
func calculateHourRange(days model.WeekData) hourRange {
	minHour := 24
	maxHour := 0

	for _, day := range days {
		if !day.Available {
			continue
		}
		for _, tr := range day.Ranges {
			startH := tr.StartMin / 60
			endH := tr.EndMin / 60
			if tr.EndMin%60 > 0 {
				endH++
			}
			if startH < minHour {
				minHour = startH
			}
			if endH > maxHour {
				maxHour = endH
			}
		}
	}

	if minHour == 24 {
		minHour = defaultMinHour
		maxHour = defaultMaxHour
	}

	startHour := minHour - hourPaddingTop
	endHour := maxHour + hourPaddingBot
	if startHour < 0 {
		startHour = 0
	}
	if endHour > 23 {
		endHour = 23
	}

	return hourRange{
		start: startHour,
		end:   endHour,
		total: endHour - startHour + 1,
	}
}

// createCanvas создает новый контекст рисования с фоном
func createCanvas() *gg.Context {
	dc := gg.NewContext(imageWidth, imageHeight)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(bgColor)
	dc.Clear()
	return dc
}

// drawHeader рисует заголовок с границами недели
func drawHeader(dc *gg.Context, week model.WeekKey, loc *time.Location) {
	title := week.DayIn(0, loc).Format("Jan 2") + " - " + week.DayIn(6, loc).Format("Jan 2, 2006")

	dc.SetColor(textColor)
	w, h := dc.MeasureString(title)
	dc.DrawStringAnchored(title, float64(imageWidth)/2-w/2, float64(headerHeight)/8+h/2, 0, 0)
}

// drawHourLabels рисует колонку с часами слева
func drawHourLabels(dc *gg.Context, hours hourRange, cellHeight float64) {
	dc.SetColor(hourLabelColor)

	for hIdx := 0; hIdx < hours.total; hIdx++ {
		actualHour := hours.start + hIdx
		y := float64(headerHeight) + float64(hIdx)*cellHeight
		dc.DrawStringAnchored(formatHourLabel(actualHour), float64(leftLabelsWidth)-10, y, 1, 0.5)
	}
}

// drawDayBackground рисует фон дня; недоступные дни затеняются
func drawDayBackground(dc *gg.Context, x, y float64, dayWidth, dayHeight, dayIndex int, isToday, available bool) {
	switch {
	case isToday:
		dc.SetColor(todayBgColor)
	case dayIndex%2 == 0:
		dc.SetColor(evenDayColor)
	default:
		dc.SetColor(oddDayColor)
	}
	dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
	dc.Fill()

	if !available {
		dc.SetColor(unavailableColor)
		dc.DrawRectangle(x, y, float64(dayWidth), float64(dayHeight))
		dc.Fill()
	}
}

// drawDayHeader рисует название дня недели и дату
func drawDayHeader(dc *gg.Context, name model.DayName, date time.Time, x, y float64, dayWidth int) {
	dc.SetColor(textColor)
	dc.DrawStringAnchored(date.Format("01/02"), x+float64(dayWidth)/2, y, 0.5, -1.6)
	dc.DrawStringAnchored(dayLabels[name], x+float64(dayWidth)/2, y, 0.5, -0.4)
}

// drawHourLines рисует горизонтальные линии часов
func drawHourLines(dc *gg.Context, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	dc.SetLineWidth(0.3)
	dc.SetColor(hourLineColor)

	for hIdx := 0; hIdx <= hours.total; hIdx++ {
		hy := y + float64(hIdx)*cellHeight
		dc.DrawLine(x, hy, x+float64(dayWidth), hy)
		dc.Stroke()
	}
}

// drawRangeBlock рисует один доступный диапазон дня
func drawRangeBlock(dc *gg.Context, tr model.TimeRange, x, y float64, dayWidth int, hours hourRange, cellHeight float64) {
	startHour := float64(tr.StartMin) / 60.0
	endHour := float64(tr.EndMin) / 60.0

	blockY := y + (startHour-float64(hours.start))*cellHeight
	blockHeight := (endHour - startHour) * cellHeight
	if blockHeight < minBlockHeight {
		blockHeight = minBlockHeight
	}
	blockWidth := float64(dayWidth) - float64(dayPaddingX*2)

	// Тень
	dc.SetColor(blockShadowColor)
	dc.DrawRoundedRectangle(x+dayPaddingX+shadowOffset, blockY+2+shadowOffset, blockWidth, blockHeight-4, blockRadius)
	dc.Fill()

	// Основной блок
	dc.SetColor(availableColor)
	dc.DrawRoundedRectangle(x+float64(dayPaddingX), blockY+2, blockWidth, blockHeight-4, blockRadius)
	dc.Fill()

	// Рамка
	dc.SetColor(darkenColor(availableColor, 0.8))
	dc.SetLineWidth(1)
	dc.DrawRoundedRectangle(x+float64(dayPaddingX), blockY+2, blockWidth, blockHeight-4, blockRadius)
	dc.Stroke()

	// Подпись времени, если блок достаточно высокий
	if blockHeight > 25 {
		dc.SetColor(blockTextColor)
		label := model.FromMinutes(tr.StartMin) + " - " + model.FromMinutes(tr.EndMin)
		dc.DrawStringAnchored(label, x+float64(dayPaddingX)+8, blockY+8+10, 0, 0)
	}
}

// darkenColor затемняет цвет на указанный множитель
func darkenColor(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// drawCurrentTimeLine рисует красную линию текущего времени
func drawCurrentTimeLine(dc *gg.Context, shouldHighlight bool, loc *time.Location, hours hourRange, cellHeight float64, dayWidth int) {
	if !shouldHighlight {
		return
	}

	now := time.Now().In(loc)
	currentHour := float64(now.Hour()) + float64(now.Minute())/60.0

	if currentHour < float64(hours.start) || currentHour > float64(hours.end) {
		return
	}

	currentTimeY := float64(headerHeight) + (currentHour-float64(hours.start))*cellHeight
	dc.SetColor(nowLineColor)
	dc.SetLineWidth(2.0)
	dc.DrawLine(float64(leftLabelsWidth), currentTimeY, float64(leftLabelsWidth+totalDaysInWeek*dayWidth), currentTimeY)
	dc.Stroke()
}

// drawLegend рисует легенду справа
func drawLegend(dc *gg.Context, dayWidth int) {
	legendX := float64(leftLabelsWidth + totalDaysInWeek*dayWidth + 10)
	legendY := float64(imageHeight) - 100.0

	legendItems := []struct {
		Label string
		Clr   color.Color
	}{
		{"Available", availableColor},
		{"Unavailable", unavailableColor},
	}

	boxW := 20.0
	boxH := 14.0
	liX := legendX
	liY := legendY + 22

	for _, item := range legendItems {
		dc.SetColor(item.Clr)
		dc.DrawRoundedRectangle(liX, liY, boxW, boxH, 3)
		dc.Fill()

		dc.SetColor(legendItemColor)
		dc.DrawStringAnchored(item.Label, liX+boxW+8, liY+boxH/2+1, 0, 0.2)
		liY += boxH + 14
	}
}

// encodeImage кодирует изображение в PNG
func encodeImage(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// формат числа с двумя цифрами
func formatTwoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func formatHourLabel(h int) string {
	return formatTwoDigits(h) + ":00"
}
