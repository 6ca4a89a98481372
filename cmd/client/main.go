// Command client is a terminal front end for the chat service. It drives the
// same session, conversation and synchronization packages a graphical client
// would.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"orachat/backend/internal/chatbot"
	"orachat/backend/internal/client/realtime"
	"orachat/backend/internal/client/rest"
	"orachat/backend/internal/client/state"
	"orachat/backend/internal/client/syncer"
	"orachat/backend/internal/models"
	"orachat/backend/pkg/config"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type app struct {
	cfg     *config.Config
	ctl     *syncer.Controller
	channel *realtime.Channel
	api     *rest.Client
	logger  *zap.Logger
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	api, err := rest.New(cfg.Client.BaseURL, logger)
	if err != nil {
		logger.Fatal("failed to build REST client", zap.Error(err))
	}

	// Without an API key the bot still answers, with its fixed apology.
	var bot chatbot.Completer
	if cfg.OpenAI.APIKey != "" {
		bot = chatbot.NewOpenAIResponder(cfg.OpenAI.APIKey, cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, logger)
	}

	a := &app{
		cfg:    cfg,
		api:    api,
		logger: logger,
		ctl: syncer.NewController(
			state.NewSession(),
			state.NewConversation(),
			api,
			bot,
			cfg.Client.StateFile,
			logger,
		),
	}

	fmt.Println("orachat client. Type /help for commands.")
	if user := a.ctl.LoadPersisted(); user != nil {
		fmt.Printf("restoring session for %s...\n", user.Username)
		if err := a.ctl.RestoreSession(context.Background()); err == nil {
			a.connect()
		} else {
			fmt.Println("session expired, please /login")
		}
	}

	a.repl()
}

func (a *app) repl() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			a.send(line)
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "/help":
			fmt.Println("/register <name> <email> <password>, /login <email> <password>, /users, /chats, /open <n>, /start <n>, /bot, /close, /logout, /quit")
		case "/register":
			if len(fields) != 4 {
				fmt.Println("usage: /register <name> <email> <password>")
				continue
			}
			if err := a.ctl.Register(context.Background(), fields[1], fields[2], fields[3]); err != nil {
				a.printError()
				continue
			}
			a.connect()
		case "/login":
			if len(fields) != 3 {
				fmt.Println("usage: /login <email> <password>")
				continue
			}
			if err := a.ctl.Login(context.Background(), fields[1], fields[2]); err != nil {
				a.printError()
				continue
			}
			a.connect()
		case "/users":
			a.listUsers()
		case "/chats":
			a.listChats()
		case "/open":
			a.openChat(fields)
		case "/start":
			a.startChat(fields)
		case "/bot":
			if err := a.ctl.OpenChatbot(); err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("chatting with %s\n", models.ChatbotUsername)
		case "/close":
			a.ctl.CloseConversation()
		case "/logout":
			if err := a.ctl.Logout(context.Background()); err != nil {
				a.printError()
			}
			if a.channel != nil {
				a.channel.Close()
				a.channel = nil
			}
		case "/quit":
			return
		default:
			fmt.Println("unknown command, try /help")
		}
	}
}

// connect dials the realtime channel with the REST session's cookies and
// hands it to the controller, then primes the roster and chat list.
func (a *app) connect() {
	ch, err := realtime.Dial(a.cfg.Client.SocketURL, a.api.Jar(), a.logger)
	if err != nil {
		fmt.Println("realtime connection failed:", err)
		return
	}
	ch.SetReconnectHook(a.ctl.OnReconnect)
	a.channel = ch

	if err := a.ctl.ConnectRealtime(ch); err != nil {
		fmt.Println("realtime handshake failed:", err)
		return
	}

	// Print traffic for the active conversation as it arrives.
	ch.Subscribe(models.EventReceiveMessage, func(data json.RawMessage) {
		var msg models.Message
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		if msg.ChatRef() == a.ctl.Conversation().ActiveChatID() {
			fmt.Printf("\n%s: %s\n> ", msg.Sender.Username, msg.Content)
		}
	})
	ch.Subscribe(models.EventTyping, func(json.RawMessage) {
		if other := a.ctl.Conversation().OtherParticipant(); other != nil && a.ctl.Conversation().IsTyping() {
			fmt.Printf("\n%s is typing...\n> ", other.Username)
		}
	})

	ctx := context.Background()
	if err := a.ctl.RefreshUsers(ctx); err != nil {
		a.printError()
	}
	if err := a.ctl.RefreshChats(ctx); err != nil {
		a.printError()
	}
	if user := a.ctl.Session().User(); user != nil {
		fmt.Printf("connected as %s\n", user.Username)
	}
}

func (a *app) send(text string) {
	a.ctl.NotifyTyping()
	if err := a.ctl.SendMessage(context.Background(), text); err != nil {
		fmt.Println(err)
		return
	}
	if models.IsChatbotChat(a.ctl.Conversation().ActiveChatID()) {
		msgs := a.ctl.Conversation().Messages()
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			fmt.Printf("%s: %s\n", last.Sender.Username, last.Content)
		}
	}
}

func (a *app) listUsers() {
	users := a.ctl.Session().Users()
	if len(users) == 0 {
		fmt.Println("no users; are you logged in?")
		return
	}
	self := a.ctl.Session().User()
	for i, u := range users {
		marker := " "
		if u.Online {
			marker = "*"
		}
		me := ""
		if self != nil && u.ID == self.ID {
			me = " (you)"
		}
		fmt.Printf("%2d %s %s%s\n", i+1, marker, u.Username, me)
	}
}

func (a *app) listChats() {
	self := a.ctl.Session().User()
	if self == nil {
		fmt.Println("not logged in")
		return
	}
	chats := a.ctl.Session().Chats()
	if len(chats) == 0 {
		fmt.Println("no chats yet; /start one")
		return
	}
	for i, c := range chats {
		other := c.OtherParticipant(self.ID)
		last := ""
		if n := len(c.Messages); n > 0 {
			last = c.Messages[n-1].Content
		}
		fmt.Printf("%2d %s: %s\n", i+1, other.Username, last)
	}
}

func (a *app) openChat(fields []string) {
	if len(fields) != 2 {
		fmt.Println("usage: /open <chat number>")
		return
	}
	n, err := strconv.Atoi(fields[1])
	chats := a.ctl.Session().Chats()
	if err != nil || n < 1 || n > len(chats) {
		fmt.Println("no such chat, see /chats")
		return
	}
	chat := chats[n-1]
	if err := a.ctl.OpenConversation(&chat); err != nil {
		fmt.Println(err)
		return
	}
	for _, msg := range a.ctl.Conversation().Messages() {
		fmt.Printf("%s: %s\n", msg.Sender.Username, msg.Content)
	}
}

func (a *app) startChat(fields []string) {
	if len(fields) != 2 {
		fmt.Println("usage: /start <user number>")
		return
	}
	n, err := strconv.Atoi(fields[1])
	users := a.ctl.Session().Users()
	if err != nil || n < 1 || n > len(users) {
		fmt.Println("no such user, see /users")
		return
	}
	chat, err := a.ctl.StartChat(context.Background(), users[n-1].ID)
	if err != nil {
		a.printError()
		return
	}
	if err := a.ctl.OpenConversation(chat); err != nil {
		fmt.Println(err)
	}
}

func (a *app) printError() {
	if msg := a.ctl.Session().Error(); msg != "" {
		fmt.Println(msg)
		return
	}
	fmt.Println(rest.FallbackErrorMessage)
}
