// Copyright 2026 The Gatekeeper Authors
// SPDX-License-Identifier: Apache-2.0

package engine

// Outgoing message copy. The bot speaks Russian to its users; keeping
// the copy in one place makes board-requested wording changes a
// one-file edit.
const (
	greetingText = "Здравствуйте! Чтобы попасть в чат кооператива, нужно пройти проверку.\n" +
		"Укажите номер вашего машино-места."

	placeNotANumberText = "Номер места — это число. Попробуйте ещё раз."

	askStatusText = "Вы член кооператива? (да/нет)"

	welcomeText = "Проверка пройдена, заявка на вступление одобрена. Добро пожаловать!"

	welcomeFlaggedText = "Заявка на вступление одобрена. Добро пожаловать!\n" +
		"По вашему месту есть расхождение в реестре, правление свяжется с вами для уточнения."

	declinedText = "Такого машино-места в кооперативе нет. Заявка отклонена.\n" +
		"Если это ошибка, свяжитесь с правлением."

	approveFailedText = "Данные записаны, но одобрить заявку не удалось. " +
		"Попробуйте подать заявку ещё раз или свяжитесь с правлением."

	storeDownText = "Сервис временно недоступен. Попробуйте позже или свяжитесь с правлением."

	menuText = "Чем могу помочь?"

	docsText = "Устав и правила кооператива: документы доступны у правления и на стенде у въезда."

	askOwnPlaceText = "Укажите номер вашего машино-места."

	askComplaintTargetText = "Укажите номер места нарушителя."

	askComplaintText = "Опишите нарушение одним сообщением."

	complaintSavedText = "Жалоба передана правлению. Спасибо."

	askNeighborTargetText = "Укажите номер места соседа, с которым нужно связаться."

	askNeighborText = "Напишите сообщение для соседа одним сообщением.\n" +
		"Оно будет передано анонимно через правление."

	noNeighborText = "За этим местом никто не закреплён, передать сообщение некому.\n" +
		"Если сосед есть, попросите его пройти проверку в чате кооператива."

	neighborSavedText = "Сообщение передано правлению для связи с соседом."

	filteredText = "Сообщение содержит недопустимую лексику. Переформулируйте и отправьте ещё раз."

	askRuleQueryText = "О чём вы хотите узнать? Напишите ключевое слово, например: снег, мойка, шлагбаум."

	ruleNotFoundText = "По этому вопросу правила ничего не говорят. Свяжитесь с правлением."
)

// mainMenuButtons is the top-level inline keyboard.
func mainMenuButtons() [][]Button {
	return [][]Button{
		{{Label: "Документы", Action: ActionDocs}},
		{{Label: "Сообщить о нарушении", Action: ActionReport}},
		{{Label: "Связаться с соседом", Action: ActionContact}},
		{{Label: "Контакты правления", Action: ActionContacts}},
		{{Label: "Поиск по правилам", Action: ActionSearchRules}},
	}
}

// backButton is a single-row keyboard returning to the main menu.
func backButton() [][]Button {
	return [][]Button{{{Label: "Назад", Action: ActionBackMain}}}
}

// MainMenu returns the menu text and keyboard, for the /start and
// /help commands handled outside the engine.
func MainMenu() (string, [][]Button) {
	return menuText, mainMenuButtons()
}
