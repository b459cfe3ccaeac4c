package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/taskdesk/internal/apiclient"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/msgtemplate"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/settings"
	"github.com/kazz187/taskdesk/internal/status"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/clog"
	"github.com/kazz187/taskdesk/pkg/storage"
)

var (
	app = kingpin.New("taskdesk", "Print and design agency task desk")

	loginCmd      = app.Command("login", "Log in to the backend")
	loginUsername = loginCmd.Flag("username", "User name").Short('u').Required().String()
	loginPassword = loginCmd.Flag("password", "Password").Envar("TASKDESK_PASSWORD").Required().String()

	logoutCmd = app.Command("logout", "Log out and forget the stored session")
	whoamiCmd = app.Command("whoami", "Show the logged-in user")

	tasksCmd            = app.Command("tasks", "Task commands")
	tasksListCmd        = tasksCmd.Command("list", "List tasks").Default()
	tasksListRole       = tasksListCmd.Flag("role", "Viewer role (management, designer, print_manager)").String()
	tasksListOverdue    = tasksListCmd.Flag("overdue", "Only overdue tasks").Bool()
	tasksListUrgent     = tasksListCmd.Flag("urgent", "Only urgent and critical tasks").Bool()
	tasksListClient     = tasksListCmd.Flag("client", "Client id").String()
	tasksListStatus     = tasksListCmd.Flag("status", "Status id").String()
	tasksListMainOnly   = tasksListCmd.Flag("main-only", "Only main tasks").Bool()
	tasksListParent     = tasksListCmd.Flag("parent", "Only subtasks of this task").String()
	tasksListSearch     = tasksListCmd.Flag("search", "Search title and description").Short('q').String()
	tasksListSort       = tasksListCmd.Flag("sort", "Sort key (deadline, priority, status, created, order)").String()
	tasksListDesignerSt = tasksListCmd.Flag("designer-status", "Statuses a designer may see").Strings()

	tasksShowCmd = tasksCmd.Command("show", "Show a task")
	tasksShowID  = tasksShowCmd.Arg("id", "Task id").Required().String()

	tasksSetStatusCmd = tasksCmd.Command("set-status", "Move a task to another status")
	tasksSetStatusID  = tasksSetStatusCmd.Arg("id", "Task id").Required().String()
	tasksSetStatusTo  = tasksSetStatusCmd.Arg("status", "Status id").Required().String()
	tasksSetStatusNo  = tasksSetStatusCmd.Flag("no-notify", "Do not send notifications").Bool()

	tasksProgressCmd = tasksCmd.Command("progress", "Show subtask progress of a main task")
	tasksProgressID  = tasksProgressCmd.Arg("id", "Task id").Required().String()

	statusesCmd     = app.Command("statuses", "Status catalog commands")
	statusesListCmd = statusesCmd.Command("list", "List statuses in catalog order").Default()
	statusesNextCmd = statusesCmd.Command("next", "List the statuses a status may move to")
	statusesNextID  = statusesNextCmd.Arg("status", "Status id").Required().String()

	templatesCmd         = app.Command("templates", "Notification template commands")
	templatesListCmd     = templatesCmd.Command("list", "List template types").Default()
	templatesExportCmd   = templatesCmd.Command("export", "Export custom templates as JSON")
	templatesExportOut   = templatesExportCmd.Flag("out", "Output file (stdout when empty)").Short('o').String()
	templatesImportCmd   = templatesCmd.Command("import", "Import templates from a JSON export")
	templatesImportFile  = templatesImportCmd.Arg("file", "Export file").Required().ExistingFile()
	templatesValidateCmd = templatesCmd.Command("validate", "Validate template text")
	templatesValidateTyp = templatesValidateCmd.Arg("type", "Template type").Required().String()
	templatesValidateTxt = templatesValidateCmd.Arg("text", "Template text").Required().String()
	templatesDiffCmd     = templatesCmd.Command("diff", "Diff a custom template against its default")
	templatesDiffTyp     = templatesDiffCmd.Arg("type", "Template type").Required().String()
	templatesRenderCmd   = templatesCmd.Command("render", "Render a template")
	templatesRenderTyp   = templatesRenderCmd.Arg("type", "Template type").Required().String()
	templatesRenderVars  = templatesRenderCmd.Flag("var", "Variable as key=value").Short('v').StringMap()
	templatesRenderEx    = templatesRenderCmd.Flag("examples", "Fill unset variables with example values").Bool()

	notifyCmd       = app.Command("notify", "Notification commands")
	notifyTestCmd   = notifyCmd.Command("test", "Send a test message")
	notifyTestText  = notifyTestCmd.Arg("message", "Message text").Default("رسالة تجريبية من نظام إدارة المهام").String()
	notifyTestGroup = notifyTestCmd.Flag("group", "Recipient group (repeatable)").Strings()
)

// cli holds everything a command may need. The task engine runs locally over
// the remote repositories; events it publishes are dispatched as
// notifications before the command returns.
type cli struct {
	env        *config.ClientEnv
	api        *apiclient.Client
	bus        *eventbus.Bus
	tasks      *task.Engine
	statuses   status.Repository
	templates  *msgtemplate.Engine
	dispatcher *notification.Dispatcher
	catalog    []status.CatalogOption
}

func newCLI(env *config.ClientEnv) (*cli, error) {
	sessionStore, err := storage.NewLocalStorage(env.BackendEnv.SessionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open session dir: %w", err)
	}
	api := apiclient.New(env.BackendEnv.URL, &http.Client{Timeout: env.BackendEnv.Timeout}, apiclient.NewTokenStore(sessionStore))

	taskRepo := apiclient.NewTaskRepository(api)
	statusRepo := apiclient.NewStatusRepository(api)
	settingsRepo := apiclient.NewSettingsRepository(api)
	catalogOpts := []status.CatalogOption{
		status.WithHoldStatus(env.CatalogEnv.HoldStatusID),
		status.WithHasCommentsStatus(env.CatalogEnv.HasCommentsStatusID),
	}

	bus := eventbus.New()
	templates := msgtemplate.NewEngine(settingsRepo)
	sendClient := &http.Client{Timeout: env.NotificationEnv.SendTimeout}
	opts := []notification.Option{
		notification.WithSendTimeout(env.NotificationEnv.SendTimeout),
		notification.WithCatalogOptions(catalogOpts...),
	}
	if env.NotificationEnv.TelegramToken != "" {
		tg, err := notification.NewTelegramSender(env.NotificationEnv.TelegramToken, "", sendClient)
		if err != nil {
			return nil, err
		}
		opts = append(opts, notification.WithTelegram(tg))
	}

	return &cli{
		env:       env,
		api:       api,
		bus:       bus,
		tasks:     task.NewEngine(taskRepo, statusRepo, sessionStore, bus, task.WithCatalogOptions(catalogOpts...)),
		statuses:  statusRepo,
		templates: templates,
		dispatcher: notification.NewDispatcher(bus, taskRepo, statusRepo, apiclient.NewClientRepository(api), settingsRepo, templates,
			notification.NewWhatsAppSender(env.NotificationEnv.CallMeBotURL, sendClient), opts...),
		catalog: catalogOpts,
	}, nil
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadClientEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(env.SlogLevel())))))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := newCLI(env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case loginCmd.FullCommand():
		err = c.login(ctx, *loginUsername, *loginPassword)
	case logoutCmd.FullCommand():
		err = c.logout(ctx)
	case whoamiCmd.FullCommand():
		err = c.whoami(ctx)
	case tasksListCmd.FullCommand():
		err = c.listTasks(ctx, task.Filters{
			Role:             task.Role(*tasksListRole),
			OverdueOnly:      *tasksListOverdue,
			UrgentOnly:       *tasksListUrgent,
			ClientID:         *tasksListClient,
			StatusID:         *tasksListStatus,
			MainOnly:         *tasksListMainOnly,
			ParentID:         *tasksListParent,
			Search:           *tasksListSearch,
			SortBy:           task.SortKey(*tasksListSort),
			DesignerStatuses: *tasksListDesignerSt,
		})
	case tasksShowCmd.FullCommand():
		err = c.showTask(ctx, *tasksShowID)
	case tasksSetStatusCmd.FullCommand():
		err = c.setStatus(ctx, *tasksSetStatusID, *tasksSetStatusTo, !*tasksSetStatusNo)
	case tasksProgressCmd.FullCommand():
		err = c.progress(ctx, *tasksProgressID)
	case statusesListCmd.FullCommand():
		err = c.listStatuses(ctx)
	case statusesNextCmd.FullCommand():
		err = c.nextStatuses(ctx, *statusesNextID)
	case templatesListCmd.FullCommand():
		err = c.listTemplates(ctx)
	case templatesExportCmd.FullCommand():
		err = c.exportTemplates(ctx, *templatesExportOut)
	case templatesImportCmd.FullCommand():
		err = c.importTemplates(ctx, *templatesImportFile)
	case templatesValidateCmd.FullCommand():
		err = c.validateTemplate(msgtemplate.Type(*templatesValidateTyp), *templatesValidateTxt)
	case templatesDiffCmd.FullCommand():
		err = c.diffTemplate(ctx, msgtemplate.Type(*templatesDiffTyp))
	case templatesRenderCmd.FullCommand():
		err = c.renderTemplate(ctx, msgtemplate.Type(*templatesRenderTyp), *templatesRenderVars, *templatesRenderEx)
	case notifyTestCmd.FullCommand():
		groups := make([]settings.Group, 0, len(*notifyTestGroup))
		for _, g := range *notifyTestGroup {
			groups = append(groups, settings.Group(g))
		}
		err = c.testNotification(ctx, *notifyTestText, groups)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorLabel("Error:"), err)
		os.Exit(1)
	}
}
