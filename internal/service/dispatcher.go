package service

import (
	"context"
	"errors"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"classpad/config"
	"classpad/internal/model"
	"classpad/internal/repository"
	"classpad/pkg/ident"
	"classpad/pkg/metrics"
)

// Event 一次待分发的通知事件
// CourseID 非空时按课程成员扇出；否则发给 UserIDs
type Event struct {
	Type         string
	CourseID     string
	ActorID      string
	UserIDs      []string
	TeachersOnly bool
	Body         string
	RelatedType  string
	RelatedID    string
}

// Notifier 业务服务依赖的通知入口，调用方永远不阻塞、不感知失败
type Notifier interface {
	Notify(ev Event)
}

var notificationTitles = map[string]string{
	model.NotifyMessage:             "课程有新消息",
	model.NotifyComment:             "消息有新评论",
	model.NotifyAssignmentPublished: "新作业已发布",
	model.NotifyUnitPublished:       "新单元已发布",
	model.NotifySubmissionGraded:    "作业已评分",
	model.NotifyAttendanceOpened:    "签到已开始",
	model.NotifyCourseJoined:        "有新学生加入课程",
}

const ellipsis = "..."

// truncateRunes 按字符截断，超出部分以 "..." 结尾
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}

// Dispatcher 进程内通知发件箱
//
// 有界 channel + 固定数量 worker。Notify 非阻塞，队列满时丢弃并计数。
// 写库失败只记录日志与指标，不回传给触发请求。
type Dispatcher struct {
	repo     *repository.Repository
	access   AccessService
	metrics  *metrics.Metrics
	logger   *zap.Logger
	workers  int
	maxRunes int

	mu     sync.RWMutex
	queue  chan Event
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher 创建通知分发器，需调用 Start 启动 worker
func NewDispatcher(
	cfg config.NotificationConfig,
	repo *repository.Repository,
	access AccessService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	maxRunes := cfg.BodyMaxRunes
	if maxRunes <= 0 {
		maxRunes = 100
	}
	return &Dispatcher{
		repo:     repo,
		access:   access,
		metrics:  m,
		logger:   logger,
		workers:  workers,
		maxRunes: maxRunes,
		queue:    make(chan Event, size),
	}
}

// Start 启动 worker；ctx 取消后 worker 在处理完当前事件后退出
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, i)
	}
	d.logger.Info("通知分发器已启动", zap.Int("workers", d.workers), zap.Int("queue_size", cap(d.queue)))
}

// Stop 停止接收新事件，等待队列中已有事件处理完毕
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Notify 投递事件，队列已满或已关闭时直接丢弃
func (d *Dispatcher) Notify(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.Notifications.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case d.queue <- ev:
		d.metrics.NotificationQueue.Set(float64(len(d.queue)))
	default:
		d.metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warn("通知队列已满，事件被丢弃",
			zap.String("type", ev.Type), zap.String("course_id", ev.CourseID))
	}
}

func (d *Dispatcher) run(ctx context.Context, n int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.queue:
			if !ok {
				return
			}
			d.metrics.NotificationQueue.Set(float64(len(d.queue)))

			pctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := d.Process(pctx, ev); err != nil {
				d.logger.Error("通知分发失败",
					zap.Int("worker", n),
					zap.String("type", ev.Type),
					zap.String("course_id", ev.CourseID),
					zap.Error(err))
			}
			cancel()
		}
	}
}

// Process 同步处理一个事件：计算收件人并批量写入
func (d *Dispatcher) Process(ctx context.Context, ev Event) error {
	recipients, courseID, err := d.recipients(ctx, ev)
	if err != nil {
		d.metrics.Notifications.WithLabelValues("failed").Inc()
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	title := notificationTitles[ev.Type]
	if title == "" {
		title = "新通知"
	}
	body := truncateRunes(ev.Body, d.maxRunes)

	var relatedID *string
	if ev.RelatedID != "" {
		rid := ev.RelatedID
		relatedID = &rid
	}

	list := make([]model.Notification, 0, len(recipients))
	for _, uid := range recipients {
		list = append(list, model.Notification{
			UserID:      uid,
			Type:        ev.Type,
			Title:       title,
			Body:        body,
			CourseID:    courseID,
			RelatedType: ev.RelatedType,
			RelatedID:   relatedID,
		})
	}

	if err := d.repo.Notification.CreateBatch(ctx, list); err != nil {
		d.metrics.Notifications.WithLabelValues("failed").Add(float64(len(list)))
		return err
	}
	d.metrics.Notifications.WithLabelValues("sent").Add(float64(len(list)))
	return nil
}

// recipients 成员集合去掉触发者本人
func (d *Dispatcher) recipients(ctx context.Context, ev Event) ([]string, *string, error) {
	var (
		ids      []string
		courseID *string
	)

	if ev.CourseID != "" {
		course, err := d.repo.Course.GetByID(ctx, ident.ID{UUID: ev.CourseID})
		if err != nil {
			return nil, nil, err
		}
		ids, err = d.access.CourseMemberIDs(ctx, course, ev.TeachersOnly)
		if err != nil {
			return nil, nil, err
		}
		cid := course.CourseID
		courseID = &cid
	}
	ids = append(ids, ev.UserIDs...)
	if len(ids) == 0 && ev.CourseID == "" {
		return nil, nil, errors.New("通知事件缺少收件人")
	}

	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == ev.ActorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, courseID, nil
}
