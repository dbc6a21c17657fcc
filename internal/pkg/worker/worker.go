package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"barter_market/internal/domain/notification/model"
	"barter_market/internal/domain/notification/repository"
	"barter_market/internal/pkg/email"
	"barter_market/internal/pkg/push"
	"barter_market/pkg/metrics"
)

// NotificationTask 一条待投递的通知
// 工作流只负责入队，落库/邮件/推送都在 worker 里完成
type NotificationTask struct {
	RecipientID string
	Type        string
	Title       string
	Message     string
	Payload     map[string]string

	// Email 非空时额外走事务邮件通道
	Email           string
	EmailTemplateID int64

	Retry int // 重试次数
}

// Dispatcher 通知入队接口，永不向调用方返回错误
type Dispatcher interface {
	Dispatch(task NotificationTask)
}

type NotificationPool struct {
	TaskQueue  chan NotificationTask
	RetryQueue chan NotificationTask // 重试队列
	Repo       repository.NotificationRepository
	Email      email.Sender
	WorkerNum  int
	MaxRetry   int
}

func NewNotificationPool(repo repository.NotificationRepository, sender email.Sender, workerNum, bufferSize int) *NotificationPool {
	return &NotificationPool{
		TaskQueue:  make(chan NotificationTask, bufferSize),
		RetryQueue: make(chan NotificationTask, bufferSize/2),
		Repo:       repo,
		Email:      sender,
		WorkerNum:  workerNum,
		MaxRetry:   3, // 最多重试3次
	}
}

func (p *NotificationPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	go p.retryWorker()
	log.Printf("Notification pool started with %d workers", p.WorkerNum)
}

// Dispatch 入队，队列满时丢弃并记录
// 通知失败永远不影响触发它的业务操作
func (p *NotificationPool) Dispatch(task NotificationTask) {
	select {
	case p.TaskQueue <- task:
	default:
		log.Printf("Notification queue full, dropping task: recipient=%s type=%s", task.RecipientID, task.Type)
		p.logFailedTask(task, nil)
	}
}

func (p *NotificationPool) worker(id int) {
	for task := range p.TaskQueue {
		if err := p.processTask(task); err != nil {
			log.Printf("[Worker %d] Failed to deliver notification (recipient=%s, type=%s): %v",
				id, task.RecipientID, task.Type, err)
			metrics.GetGlobalCollector().RecordNotification(task.Type, "failure")

			if task.Retry < p.MaxRetry {
				task.Retry++
				select {
				case p.RetryQueue <- task:
					log.Printf("[Worker %d] Task added to retry queue (attempt %d/%d)",
						id, task.Retry, p.MaxRetry)
				default:
					log.Printf("[Worker %d] Retry queue full, task dropped", id)
					p.logFailedTask(task, err)
				}
			} else {
				log.Printf("[Worker %d] Task exceeded max retries, dropped", id)
				p.logFailedTask(task, err)
			}
			continue
		}
		metrics.GetGlobalCollector().RecordNotification(task.Type, "success")
	}
}

func (p *NotificationPool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * time.Second)

		select {
		case p.TaskQueue <- task:
			log.Printf("[RetryWorker] Task re-queued (attempt %d/%d)", task.Retry, p.MaxRetry)
		default:
			log.Printf("[RetryWorker] Main queue full, task dropped")
			p.logFailedTask(task, nil)
		}
	}
}

func (p *NotificationPool) processTask(task NotificationTask) error {
	n := &model.Notification{
		RecipientID: task.RecipientID,
		Type:        task.Type,
		Title:       task.Title,
		Message:     task.Message,
	}
	if len(task.Payload) > 0 {
		payload, err := json.Marshal(task.Payload)
		if err == nil {
			n.Payload = payload
		}
	}

	if err := p.Repo.Create(context.Background(), n); err != nil {
		return err
	}

	// 邮件通道：失败只记录，落库已成功就不算任务失败
	if task.Email != "" && task.EmailTemplateID > 0 && p.Email != nil {
		params := map[string]string{"title": task.Title, "message": task.Message}
		for k, v := range task.Payload {
			params[k] = v
		}
		if err := p.Email.SendTemplate(task.Email, task.EmailTemplateID, params); err != nil {
			log.Printf("[Notification] email send failed (recipient=%s): %v", task.RecipientID, err)
		}
	}

	// App 推送通道，best-effort
	if push.GlobalPushService != nil {
		go func(t NotificationTask) {
			if err := push.GlobalPushService.PushToAccount(t.RecipientID, t.Title, t.Message, t.Payload); err != nil {
				log.Printf("[Notification] push failed (recipient=%s): %v", t.RecipientID, err)
			}
		}(task)
	}

	return nil
}

func (p *NotificationPool) logFailedTask(task NotificationTask, err error) {
	// TODO: 接入死信表，目前只落日志
	log.Printf("[DeadLetter] Notification failed permanently: recipient=%s, type=%s, error=%v",
		task.RecipientID, task.Type, err)
}

// GlobalDispatcher 全局通知分发器，由 notification 模块初始化
var GlobalDispatcher Dispatcher
