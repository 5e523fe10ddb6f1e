package rewards

import (
	"strings"

	"github.com/mmeshcher/coin-rewards/internal/model"
)

var catalog = []model.Task{
	{ID: 1, Title: "Join Main Channel", Description: "Join our main Telegram channel", Reward: 10, Kind: model.TaskKindChannelJoin, Target: "@your_channel"},
	{ID: 2, Title: "Join News Channel", Description: "Join our news channel", Reward: 10, Kind: model.TaskKindChannelJoin, Target: "@your_news_channel"},
	{ID: 3, Title: "Follow on Twitter", Description: "Follow our Twitter account", Reward: 15, Kind: model.TaskKindSocialFollow, Target: "https://twitter.com/your_account"},
}

// Catalog возвращает копию каталога заданий в порядке отображения.
func Catalog() []model.Task {
	return append([]model.Task(nil), catalog...)
}

// LookupTask ищет задание по идентификатору.
func LookupTask(id int) (model.Task, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// TaskLink возвращает внешнюю ссылку, по которой пользователь выполняет задание.
func TaskLink(t model.Task) string {
	if t.Kind == model.TaskKindChannelJoin {
		return "https://t.me/" + strings.TrimPrefix(t.Target, "@")
	}
	return t.Target
}

// TaskViews объединяет каталог с отметками о выполнении.
func TaskViews(s *model.UserState) []model.TaskView {
	views := make([]model.TaskView, 0, len(catalog))
	for _, t := range catalog {
		views = append(views, model.TaskView{
			Task:      t,
			Completed: s.CompletedTasks[t.ID],
			Link:      TaskLink(t),
		})
	}
	return views
}

// CompleteTask отмечает задание выполненным и начисляет награду ровно один раз.
// Повторный вызов ничего не меняет и возвращает Credited=false.
//
// Факт выполнения внешнего действия не проверяется.
func CompleteTask(s *model.UserState, id int) (model.TaskResult, error) {
	task, ok := LookupTask(id)
	if !ok {
		return model.TaskResult{}, ErrUnknownTask
	}

	res := model.TaskResult{TaskID: id, Reward: task.Reward}

	if s.CompletedTasks[id] {
		res.TasksCompleted = s.TasksCompleted
		res.Balance = s.Balance
		return res, nil
	}

	if s.CompletedTasks == nil {
		s.CompletedTasks = make(map[int]bool)
	}
	s.CompletedTasks[id] = true
	Credit(s, task.Reward)
	s.TasksCompleted++

	res.Credited = true
	res.TasksCompleted = s.TasksCompleted
	res.Balance = s.Balance
	return res, nil
}
