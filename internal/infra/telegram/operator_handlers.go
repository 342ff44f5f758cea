package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"community_ops_bot/internal/app"
	"community_ops_bot/internal/domain/period"
	"community_ops_bot/internal/domain/shiftlog"
	idb "community_ops_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const scheduleTimeLayout = "2006-01-02 15:04"
const profilePrefix = "perfil:"

// RegisterOperatorHandlers wires the command surface to the application
// services. Handlers only parse arguments and render plain-text replies;
// validation and persistence live in the services.
func RegisterOperatorHandlers(
	ctx context.Context,
	b *telebot.Bot,
	broadcasts *app.BroadcastService,
	shiftLog *app.ShiftLogService,
	reports *app.ReportService,
	loc *time.Location,
	baseLogger *logrus.Entry,
) {
	b.Handle("/programar", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/programar", c)
		args := c.Args()
		// Format: /programar <canal_id> <AAAA-MM-DD> <HH:MM> <mensaje>
		if len(args) < 4 {
			return c.Send("Uso: /programar <canal_id> <AAAA-MM-DD> <HH:MM> <mensaje>")
		}
		destID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("❌ El ID de canal debe ser un número.")
		}
		sendAt, err := time.ParseInLocation(scheduleTimeLayout, args[1]+" "+args[2], loc)
		if err != nil {
			return c.Send("❌ Formato de fecha y hora incorrecto. Usa `AAAA-MM-DD HH:MM`.")
		}
		content := strings.Join(args[3:], " ")

		id, err := broadcasts.Schedule(ctx, c.Chat().ID, destID, c.Sender().ID, content, sendAt)
		if err != nil {
			if errors.Is(err, app.ErrPastSendTime) {
				return c.Send("❌ La fecha y hora deben ser en el futuro.")
			}
			logCtx.WithError(err).Error("Failed to schedule broadcast")
			return c.Send("❌ No se pudo programar el mensaje.")
		}
		return c.Send(fmt.Sprintf("✅ ¡Mensaje programado! Se enviará el `%s`. **ID de tarea: %d**", sendAt.Format(scheduleTimeLayout), id))
	})

	b.Handle("/programaria", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/programaria", c)
		args := c.Args()
		// Format: /programaria <canal_id> <AAAA-MM-DD> <HH:MM> <prompt>
		if len(args) < 4 {
			return c.Send("Uso: /programaria <canal_id> <AAAA-MM-DD> <HH:MM> <prompt>")
		}
		destID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("❌ El ID de canal debe ser un número.")
		}
		sendAt, err := time.ParseInLocation(scheduleTimeLayout, args[1]+" "+args[2], loc)
		if err != nil {
			return c.Send("❌ Formato de fecha y hora incorrecto. Usa `AAAA-MM-DD HH:MM`.")
		}

		id, err := broadcasts.ScheduleGenerated(ctx, c.Chat().ID, destID, c.Sender().ID, strings.Join(args[3:], " "), sendAt)
		if err != nil {
			if errors.Is(err, app.ErrPastSendTime) {
				return c.Send("❌ La fecha y hora deben ser en el futuro.")
			}
			logCtx.WithError(err).Error("Failed to schedule generated broadcast")
			return c.Send("❌ Error al generar o programar el contenido con la IA.")
		}
		return c.Send(fmt.Sprintf("✅ ¡Contenido generado y programado! **ID de tarea: %d**", id))
	})

	b.Handle("/programarserie", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/programarserie", c)
		args := c.Args()
		// Format: /programarserie <canal_id> <cantidad> <AAAA-MM-DD> <HH:MM> <tema>
		if len(args) < 5 {
			return c.Send("Uso: /programarserie <canal_id> <cantidad> <AAAA-MM-DD> <HH:MM> <tema>")
		}
		destID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("❌ El ID de canal debe ser un número.")
		}
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return c.Send("❌ La cantidad debe ser un número.")
		}
		start, err := time.ParseInLocation(scheduleTimeLayout, args[2]+" "+args[3], loc)
		if err != nil {
			return c.Send("❌ Formato de fecha y hora incorrecto. Usa `AAAA-MM-DD HH:MM`.")
		}
		topic := strings.Join(args[4:], " ")

		result, err := broadcasts.ScheduleSeries(ctx, c.Chat().ID, destID, c.Sender().ID, count, start, topic)
		if err != nil {
			var partial *app.PartialSeriesError
			switch {
			case errors.Is(err, app.ErrSeriesCount):
				return c.Send("❌ La cantidad de posts debe estar entre 2 y 10.")
			case errors.Is(err, app.ErrPastSendTime):
				return c.Send("❌ La fecha y hora de inicio deben ser en el futuro.")
			case errors.As(err, &partial):
				// The produced prefix is already scheduled; report the mismatch.
				return c.Send(fmt.Sprintf("⚠️ La IA generó menos posts de los solicitados (%d de %d). Los generados quedaron programados: %s",
					partial.Scheduled, partial.Requested, formatIDs(result.ScheduledIDs)))
			default:
				logCtx.WithError(err).Error("Failed to schedule series")
				return c.Send("❌ Error al generar la serie de contenido con la IA.")
			}
		}
		return c.Send(fmt.Sprintf("✅ ¡Serie de %d posts generada y programada! IDs de tarea: %s",
			len(result.ScheduledIDs), formatIDs(result.ScheduledIDs)))
	})

	b.Handle("/tareas", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/tareas", c)
		pending, err := broadcasts.ListPending(ctx, c.Chat().ID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list pending broadcasts")
			return c.Send("❌ No se pudieron consultar las tareas programadas.")
		}
		if len(pending) == 0 {
			return c.Send("No hay tareas programadas pendientes.")
		}
		var sb strings.Builder
		sb.WriteString("🗓️ Tareas Programadas Pendientes\n\n")
		for _, t := range pending {
			preview := t.Content
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}
			sb.WriteString(fmt.Sprintf("ID: %d | canal %d | `%s`\n%s\n\n",
				t.ID, t.DestID, t.SendAt.In(loc).Format(scheduleTimeLayout), preview))
		}
		return c.Send(sb.String())
	})

	b.Handle("/borrartarea", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/borrartarea", c)
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Uso: /borrartarea <id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return c.Send("❌ El ID de tarea debe ser un número.")
		}
		if err := broadcasts.DeletePending(ctx, id, c.Chat().ID); err != nil {
			if errors.Is(err, idb.ErrBroadcastNotFound) {
				return c.Send(fmt.Sprintf("🤔 No encontré una tarea pendiente con el ID `%d` en este chat.", id))
			}
			logCtx.WithError(err).Error("Failed to delete pending broadcast")
			return c.Send("❌ No se pudo borrar la tarea.")
		}
		return c.Send(fmt.Sprintf("✅ Tarea con ID `%d` eliminada.", id))
	})

	b.Handle("/lm", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/lm", c)
		payload := strings.TrimSpace(c.Message().Payload)
		if payload == "" {
			return c.Send("❌ Debes escribir un mensaje. Uso: /lm [perfil:<nombre>] <mensaje>")
		}

		profile, message, hasProfile := splitProfilePayload(payload)
		if hasProfile && message == "" {
			return c.Send(fmt.Sprintf("❌ Escribiste el perfil `%s` pero olvidaste el mensaje.", profile))
		}

		logged, err := shiftLog.LogMessage(ctx, c.Sender().ID, profile, message)
		if err != nil {
			logCtx.WithError(err).Error("Failed to log change message")
			return c.Send("❌ Ocurrió un error inesperado al registrar el LM.")
		}
		return c.Send(formatChangeMessage(logged, c.Sender().FirstName))
	})

	b.Handle("/exito", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/exito", c)
		payload := strings.TrimSpace(c.Message().Payload)
		if payload == "" {
			return c.Send("❌ Debes escribir el texto del log. Uso: /exito <texto>")
		}
		if _, err := shiftLog.LogSuccess(ctx, c.Sender().ID, payload); err != nil {
			logCtx.WithError(err).Error("Failed to log success entry")
			return c.Send("❌ No se pudo registrar el éxito.")
		}
		return c.Send(fmt.Sprintf("🎉 ¡Éxito registrado!\n%s", payload))
	})

	b.Handle("/stats", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/stats", c)
		periodRaw, narrowRaw := splitPeriodArgs(c.Args())

		report, err := reports.Stats(ctx, periodRaw, narrowRaw)
		if err != nil {
			return sendReportError(c, logCtx, err)
		}
		if len(report.Rows) == 0 {
			return c.Send(fmt.Sprintf("📊 %s\n\nNo se encontraron registros para los criterios seleccionados.", report.Title))
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("📊 %s\n\n**Total de LMs:** %d\n\n", report.Title, report.Total))
		for _, row := range report.Rows {
			var shifts []string
			for _, sh := range []shiftlog.Shift{shiftlog.ShiftDay, shiftlog.ShiftEvening, shiftlog.ShiftNight} {
				if n, ok := row.ByShift[sh]; ok {
					shifts = append(shifts, fmt.Sprintf("%s %d", sh.Display(), n))
				}
			}
			sb.WriteString(fmt.Sprintf("Operador %d: %d LMs en total (%s)\n", row.AuthorID, row.Total, strings.Join(shifts, " | ")))
		}
		return c.Send(sb.String())
	})

	b.Handle("/registrolm", func(c telebot.Context) error {
		logCtx := handlerLogger(baseLogger, "/registrolm", c)
		periodRaw, narrowRaw := splitPeriodArgs(c.Args())

		report, err := reports.Registry(ctx, periodRaw, narrowRaw)
		if err != nil {
			return sendReportError(c, logCtx, err)
		}
		if len(report.Entries) == 0 {
			return c.Send(fmt.Sprintf("📜 %s\n\nNo se encontraron LMs para los criterios seleccionados.", report.Title))
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("📜 %s\n\n", report.Title))
		for _, re := range report.Entries {
			name := re.DisplayName
			if name == "" {
				name = fmt.Sprintf("ID: %d", re.Entry.AuthorID)
			}
			profile := ""
			if re.Entry.ProfileLabel.Valid {
				profile = fmt.Sprintf("Perfil: `%s` | ", re.Entry.ProfileLabel.String)
			}
			sb.WriteString(fmt.Sprintf("[%s] - %sOp: %s\n> %s\n\n",
				re.Entry.Timestamp.In(loc).Format("15:04"), profile, name, re.Entry.Content))
		}
		if report.Truncated {
			sb.WriteString("*[Resultados truncados por su longitud]*")
		}
		return c.Send(sb.String())
	})
}

func handlerLogger(base *logrus.Entry, handler string, c telebot.Context) *logrus.Entry {
	return base.WithFields(logrus.Fields{
		"handler":   handler,
		"sender_id": c.Sender().ID,
	})
}

func sendReportError(c telebot.Context, logCtx *logrus.Entry, err error) error {
	var resErr *period.ResolutionError
	switch {
	case errors.As(err, &resErr):
		return c.Send("❌ " + resErr.Reason)
	case errors.Is(err, app.ErrNoOperatorMatch):
		return c.Send("🤔 No encontré ningún operador con ese filtro.")
	default:
		logCtx.WithError(err).Error("Report query failed")
		return c.Send("❌ No se pudo generar el reporte.")
	}
}

// splitProfilePayload separates an optional leading "perfil:<nombre>"
// token from the message body. The prefix match is case-insensitive and
// the profile name is normalized to lower case.
func splitProfilePayload(payload string) (profile, message string, hasProfile bool) {
	if !strings.HasPrefix(strings.ToLower(payload), profilePrefix) {
		return "", payload, false
	}
	parts := strings.SplitN(payload, " ", 2)
	profile = strings.TrimPrefix(strings.ToLower(parts[0]), profilePrefix)
	if len(parts) == 2 {
		message = strings.TrimSpace(parts[1])
	}
	return profile, message, true
}

func splitPeriodArgs(args []string) (periodRaw, narrowRaw string) {
	if len(args) == 0 {
		return "hoy", ""
	}
	return args[0], strings.Join(args[1:], " ")
}

func formatIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}

// formatChangeMessage renders the change post the way operators expect:
// header with change number, shift label and the hour range, then the body.
// The info line prefers the operator's per-shift nickname over the sender's
// own name.
func formatChangeMessage(logged *app.LoggedMessage, senderName string) string {
	start := logged.Entry.Timestamp
	end := start.Add(1 * time.Hour)
	timeRange := fmt.Sprintf("%s - %s", formatClock(start), formatClock(end))
	header := fmt.Sprintf("Cambio# %d (%s)   %s", logged.ChangeNumber, logged.Entry.Shift.Display(), timeRange)

	if logged.Entry.ProfileLabel.Valid {
		name := logged.DisplayName
		if name == "" {
			name = senderName
		}
		info := fmt.Sprintf("%s/ %s", titleCase(logged.Entry.ProfileLabel.String), name)
		return fmt.Sprintf("%s\n%s\n\n😎 %s", header, info, logged.Entry.Content)
	}
	return fmt.Sprintf("%s\n\n😎 %s", header, logged.Entry.Content)
}

func formatClock(t time.Time) string {
	return strings.ToLower(t.Format("3:04 PM"))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
